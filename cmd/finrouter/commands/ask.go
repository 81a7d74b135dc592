// ABOUTME: CLI command to ask the router a question
// ABOUTME: Prints the final answer, optionally streaming status events as they happen
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
)

// askResult is the JSON shape of an answered question
type askResult struct {
	ThreadID string               `json:"thread_id"`
	Response string               `json:"response"`
	Route    models.RouteKind     `json:"route"`
	Handlers []models.HandlerID   `json:"handlers"`
	Degraded bool                 `json:"degraded,omitempty"`
	Phase    models.Phase         `json:"phase"`
	Error    string               `json:"error,omitempty"`
	Events   []models.StatusEvent `json:"events,omitempty"`
}

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	var (
		threadID   string
		showEvents bool
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask a financial question",
		Long: `Ask a financial question.

The message is classified and sent to one or more handlers. Use --thread
to continue a conversation; without it a new thread is started and its id
is printed so you can continue later. Reads stdin when no message is given.

Examples:
  finrouter ask "What is dollar cost averaging?"
  finrouter ask --thread thread_1a2b3c4d "And how does that apply to my 401k?"
  echo "Should I invest in NVDA?" | finrouter ask --events`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := messageFromArgs(cmd, args)
			if err != nil {
				return err
			}
			return runAsk(cmd, threadID, message, showEvents)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread to continue")
	cmd.Flags().BoolVar(&showEvents, "events", false, "Print status events as the request is processed")

	return cmd
}

func runAsk(cmd *cobra.Command, threadID, message string, showEvents bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []core.SubmitOption
	if showEvents && !jsonOutput() {
		opts = append(opts, core.WithObserver(func(ev models.StatusEvent) {
			printEvent(cmd.ErrOrStderr(), ev)
		}))
	}

	run, err := a.Orchestrator.Submit(cmd.Context(), threadID, message, opts...)
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	if jsonOutput() {
		result := askResult{
			ThreadID: run.ThreadID,
			Response: run.FinalResponse(),
			Route:    run.Route,
			Handlers: run.Handlers,
			Degraded: run.Degraded,
			Phase:    run.Phase,
		}
		if run.Failure != nil {
			result.Error = run.Failure.Error()
		}
		if showEvents {
			result.Events = run.Events
		}
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, run.FinalResponse())

	if run.Failure != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ %v\n", run.Failure)
	}
	if !quiet {
		fmt.Fprintln(out)
		color.New(color.Faint).Fprintf(out, "%s · %s · %s\n",
			handlerList(run.Handlers), routeLabel(run.Route, run.Degraded), run.ThreadID)
	}
	return nil
}

// messageFromArgs joins the arguments or reads stdin when there are none
func messageFromArgs(cmd *cobra.Command, args []string) (string, error) {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no message provided")
	}
	return text, nil
}

func printEvent(w io.Writer, ev models.StatusEvent) {
	node := color.New(color.FgCyan).Sprintf("%-24s", ev.Node)
	fmt.Fprintf(w, "%3d %s %s\n", ev.Seq, node, ev.Phase)
}

func handlerList(ids []models.HandlerID) string {
	if len(ids) == 0 {
		return "no handler"
	}
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = id.Label()
	}
	return color.New(color.FgCyan).Sprint(strings.Join(labels, " → "))
}

func routeLabel(route models.RouteKind, degraded bool) string {
	switch {
	case route == models.RouteDirect:
		return "fast path"
	case degraded:
		return color.New(color.FgYellow).Sprint("planner fallback")
	default:
		return "planned"
	}
}
