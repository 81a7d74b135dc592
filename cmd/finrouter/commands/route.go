// ABOUTME: CLI command to explain a routing decision
// ABOUTME: Shows rule matches, keyword scores and the decision without running handlers
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/finrouter/internal/models"
)

// NewRouteCmd creates the route command
func NewRouteCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "route [message]",
		Short: "Explain how a message would be routed",
		Long: `Explain how a message would be routed.

Shows every pattern rule that matched, the keyword score of each handler
and the classifier's decision. No handler is called and nothing is stored.
With --thread, the thread's history is used for topic continuity.

Examples:
  finrouter route "How is my portfolio doing?"
  finrouter route --format json "Tell me about Tesla"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := messageFromArgs(cmd, args)
			if err != nil {
				return err
			}
			return runRoute(cmd, threadID, message)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Use this thread's history")

	return cmd
}

func runRoute(cmd *cobra.Command, threadID, message string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var history []models.Message
	if threadID != "" {
		state, err := a.Orchestrator.Thread(cmd.Context(), threadID)
		if err != nil {
			return fmt.Errorf("loading thread: %w", err)
		}
		if state == nil {
			return fmt.Errorf("thread not found: %s", threadID)
		}
		history = state.Messages
	}
	msg, err := models.NewUserMessage(message)
	if err != nil {
		return err
	}
	history = append(history, *msg)

	analysis := a.Orchestrator.Classifier().Analyze(history)

	if jsonOutput() {
		jsonData, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)

	bold.Fprintln(out, "Pattern matches")
	if len(analysis.PatternMatches) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for i, m := range analysis.PatternMatches {
		marker := " "
		if i == 0 {
			marker = color.New(color.FgGreen).Sprint("✓")
		}
		fmt.Fprintf(out, "  %s %s → %s (%s, priority %d)\n", marker, m.Rule, m.Handler, m.Tier, m.Priority)
	}
	fmt.Fprintln(out)

	bold.Fprintln(out, "Keyword scores")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  HANDLER\tSCORE\tMATCHED\n")
	for _, s := range analysis.Scores {
		fmt.Fprintf(w, "  %s\t%.2f\t%s\n", s.Handler, s.Score, truncate(strings.Join(s.Matched, ", "), 50))
	}
	w.Flush()
	fmt.Fprintln(out)

	d := analysis.Decision
	bold.Fprintln(out, "Decision")
	if d.IsDirect() {
		fmt.Fprintf(out, "  %s → %s (confidence %.2f)\n",
			color.New(color.FgGreen).Sprint("direct"), d.Handler, d.Confidence)
	} else {
		fmt.Fprintf(out, "  %s (confidence %.2f)\n",
			color.New(color.FgYellow).Sprint("needs planner"), d.Confidence)
	}
	fmt.Fprintf(out, "  %s\n", d.Reasoning)
	return nil
}
