// ABOUTME: Root command for the finrouter CLI and global flags
// ABOUTME: Loads .env and configuration, sets up logging, wires subcommands
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/finrouter/internal/app"
	"github.com/harper/finrouter/internal/config"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string

	logger = log.New(io.Discard)
)

const banner = `
███████╗██╗███╗   ██╗██████╗  ██████╗ ██╗   ██╗████████╗███████╗██████╗
██╔════╝██║████╗  ██║██╔══██╗██╔═══██╗██║   ██║╚══██╔══╝██╔════╝██╔══██╗
█████╗  ██║██╔██╗ ██║██████╔╝██║   ██║██║   ██║   ██║   █████╗  ██████╔╝
██╔══╝  ██║██║╚██╗██║██╔══██╗██║   ██║██║   ██║   ██║   ██╔══╝  ██╔══██╗
██║     ██║██║ ╚████║██║  ██║╚██████╔╝╚██████╔╝   ██║   ███████╗██║  ██║
╚═╝     ╚═╝╚═╝  ╚═══╝╚═╝  ╚═╝ ╚═════╝  ╚═════╝    ╚═╝   ╚══════╝╚═╝  ╚═╝`

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finrouter",
		Short: "Route financial questions to specialist handlers",
		Long: banner + `

finrouter answers financial questions by routing each message to the
right specialist: education, goal planning, portfolio, market or news.
Clear questions go straight to one handler; ambiguous ones are planned
by an LLM and may run several handlers in sequence, merged into one answer.

Conversations are kept per thread in SQLite (default), Charm cloud or memory.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text or json")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (environment overrides it)")

	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewRouteCmd())
	cmd.AddCommand(NewThreadsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewHandlersCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewVersionCmd())
	cmd.AddCommand(NewInstallSkillCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	if verbose && quiet {
		return errors.New("--verbose and --quiet cannot be used together")
	}
	switch outputFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("unknown --format %q (want auto, text or json)", outputFormat)
	}

	// .env is optional
	_ = godotenv.Load()

	logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "finrouter",
		ReportTimestamp: true,
		Level:           logLevel(os.Getenv("LOG_LEVEL")),
	})
	return nil
}

// logLevel maps flags and LOG_LEVEL onto a charm log level
func logLevel(name string) log.Level {
	switch {
	case verbose:
		return log.DebugLevel
	case quiet:
		return log.ErrorLevel
	}
	switch name {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// loadConfig reads --config when given, otherwise the environment alone
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openApp wires the router for a command; callers must Close it
func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("starting router: %w", err)
	}
	return a, nil
}

func jsonOutput() bool {
	return outputFormat == "json"
}
