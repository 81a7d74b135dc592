// ABOUTME: CLI commands for routing statistics and the handler catalogue
// ABOUTME: stats reads persisted run records; handlers lists what the router can call
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/finrouter/internal/core"
	"github.com/harper/finrouter/internal/models"
)

// statsOutput is the JSON shape of the stats command
type statsOutput struct {
	models.RoutingStats
	FastPathRate     float64 `json:"fast_path_rate"`
	AverageLatencyMS int64   `json:"average_latency_ms"`
}

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show routing statistics",
		Long: `Show routing statistics across all threads: how many requests took the
fast path, how many needed the planner, degraded plans, handler failures
and how often each handler ran.

The memory backend only counts requests made by the current process.`,
		RunE: runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Orchestrator.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}

	if jsonOutput() {
		jsonData, err := json.MarshalIndent(statsOutput{
			RoutingStats:     stats,
			FastPathRate:     stats.FastPathRate(),
			AverageLatencyMS: stats.AverageLatency().Milliseconds(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	out := cmd.OutOrStdout()
	if stats.TotalRequests == 0 {
		fmt.Fprintln(out, "No requests recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Requests:\t%d\n", stats.TotalRequests)
	fmt.Fprintf(w, "Fast path:\t%d (%.0f%%)\n", stats.FastPath, stats.FastPathRate()*100)
	fmt.Fprintf(w, "Planner calls:\t%d\n", stats.PlannerCalls)
	fmt.Fprintf(w, "Degraded plans:\t%d\n", stats.Degraded)
	fmt.Fprintf(w, "Multi-handler:\t%d\n", stats.MultiHandler)
	fmt.Fprintf(w, "Handler failures:\t%d\n", stats.HandlerFailures)
	fmt.Fprintf(w, "Average latency:\t%s\n", stats.AverageLatency().Round(time.Millisecond))
	w.Flush()

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "HANDLER\tRUNS\n")
	for _, id := range models.AllHandlers() {
		fmt.Fprintf(w, "%s\t%d\n", id, stats.HandlerCounts[id])
	}
	w.Flush()
	return nil
}

// NewHandlersCmd creates the handlers command
func NewHandlersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "List the handlers the router can call",
		Long: `List the registered handlers in tie-break priority order with the
description the planner sees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			catalogue := a.Orchestrator.Registry().Catalogue()
			if jsonOutput() {
				jsonData, err := json.MarshalIndent(catalogue, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
				return nil
			}
			printCatalogue(cmd, catalogue, a.Provider.Name)
			return nil
		},
	}
}

func printCatalogue(cmd *cobra.Command, catalogue []core.HandlerInfo, provider string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "HANDLER\tDESCRIPTION\n")
	for _, info := range catalogue {
		fmt.Fprintf(w, "%s\t%s\n", info.ID, truncate(info.Description, 70))
	}
	w.Flush()
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nProvider: %s\n", provider)
	}
}
