// ABOUTME: CLI commands to list threads and show a thread's history
// ABOUTME: Tables via tabwriter, JSON with --format json
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/finrouter/internal/models"
)

// NewThreadsCmd creates the threads command
func NewThreadsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List conversation threads",
		Long: `List stored conversation threads, most recently updated first.

Examples:
  finrouter threads
  finrouter threads --limit 5 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePositiveInt(limit, "limit"); err != nil {
				return err
			}
			return runThreads(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum threads to show")

	return cmd
}

func runThreads(cmd *cobra.Command, limit int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	threads, err := a.Orchestrator.ListThreads(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}

	if jsonOutput() {
		if threads == nil {
			threads = []models.ThreadSummary{}
		}
		jsonData, err := json.MarshalIndent(threads, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	if len(threads) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No threads found\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "THREAD\tMESSAGES\tLAST HANDLER\tUPDATED\tFIRST QUESTION\n")
	fmt.Fprintf(w, "------\t--------\t------------\t-------\t--------------\n")
	for _, t := range threads {
		last := string(t.LastHandler)
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			t.ThreadID,
			t.MessageCount,
			last,
			formatTime(t.UpdatedAt),
			truncate(t.Preview, 40))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d thread(s)\n", len(threads))
	}
	return nil
}

// threadHistory is the JSON shape of the history command
type threadHistory struct {
	*models.ConversationState
	Runs []models.RunRecord `json:"runs,omitempty"`
}

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "history <thread>",
		Short: "Show the messages of a thread",
		Long: `Show the full message log of a conversation thread, with the handler
behind each answer and what the router has learned about the user.

With the SQLite backend, --runs also lists the most recent routing runs.

Examples:
  finrouter history thread_1a2b3c4d
  finrouter history thread_1a2b3c4d --runs 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0], runs)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 0, "Also show this many recent routing runs (sqlite backend)")

	return cmd
}

func runHistory(cmd *cobra.Command, threadID string, runLimit int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.Orchestrator.Thread(cmd.Context(), threadID)
	if err != nil {
		return fmt.Errorf("loading thread: %w", err)
	}
	if state == nil {
		return fmt.Errorf("thread not found: %s", threadID)
	}

	var records []models.RunRecord
	if store, ok := a.SQLite(); ok && runLimit > 0 {
		records, err = store.RecentRuns(cmd.Context(), threadID, runLimit)
		if err != nil {
			return fmt.Errorf("loading runs: %w", err)
		}
	}

	if jsonOutput() {
		jsonData, err := json.MarshalIndent(threadHistory{ConversationState: state, Runs: records}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	out := cmd.OutOrStdout()
	user := color.New(color.FgGreen, color.Bold)
	assistant := color.New(color.FgCyan, color.Bold)

	if !quiet {
		color.New(color.Faint).Fprintf(out, "%s · %s\n\n", state.ThreadID, models.ContextSummary(state.Messages))
	}
	for _, m := range state.Messages {
		if m.Role == models.RoleUser {
			user.Fprintf(out, "You")
		} else {
			label := "Assistant"
			if m.Handler != "" {
				label = m.Handler.Label()
			}
			assistant.Fprintf(out, "%s", label)
		}
		fmt.Fprintf(out, " (%s)\n%s\n\n", formatTime(m.CreatedAt), m.Content)
	}

	if lines := userContextSummary(state.UserContext); len(lines) > 0 && !quiet {
		fmt.Fprintf(out, "Known about you: %s\n", strings.Join(lines, "; "))
	}

	if len(records) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "WHEN\tROUTE\tMODE\tHANDLERS\tPHASE\tDURATION\n")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				formatTime(r.At), r.Route, r.Mode, joinHandlers(r.Handlers), r.Phase, r.Duration.Round(time.Millisecond))
		}
		w.Flush()
	}
	return nil
}

func userContextSummary(uc models.UserContext) []string {
	var lines []string
	if uc.HasPortfolio {
		lines = append(lines, "has a portfolio")
	}
	if uc.HasGoals {
		lines = append(lines, "has financial goals")
	}
	if uc.InvestmentStage != "" && uc.InvestmentStage != models.StageUnknown {
		lines = append(lines, "investment stage "+uc.InvestmentStage)
	}
	return lines
}

func joinHandlers(ids []models.HandlerID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
