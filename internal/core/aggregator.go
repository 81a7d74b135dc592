// ABOUTME: Aggregator merges the results of a completed plan into one response
// ABOUTME: Deterministic: sections follow queue order, failed or missing entries are skipped
package core

import (
	"fmt"
	"strings"

	"github.com/harper/finrouter/internal/models"
)

const sectionRule = "======================================================================"

// Aggregate renders one labelled section per successful handler in queue order,
// followed by a fixed summary of how many handlers contributed
func Aggregate(queue []models.HandlerID, results map[models.HandlerID]models.HandlerResult) string {
	var b strings.Builder
	contributed := make([]string, 0, len(queue))

	for _, id := range queue {
		r, ok := results[id]
		if !ok || r.Failed {
			continue
		}
		contributed = append(contributed, id.Label())
		fmt.Fprintf(&b, "**%s ANALYSIS**\n", strings.ToUpper(id.Label()))
		b.WriteString(sectionRule + "\n")
		b.WriteString(strings.TrimSpace(r.Output))
		b.WriteString("\n\n")
	}

	b.WriteString(sectionRule + "\n")
	b.WriteString("**COMPREHENSIVE ANALYSIS**\n")
	b.WriteString(sectionRule + "\n")
	fmt.Fprintf(&b, "Based on the analysis from %d specialized %s above (%s), review each section for the details relevant to your question.",
		len(contributed), plural(len(contributed), "handler", "handlers"), strings.Join(contributed, ", "))
	return b.String()
}

// PartialResponse builds the response of an aborted plan: the successful
// results so far plus a notice naming the failed step
func PartialResponse(queue []models.HandlerID, results map[models.HandlerID]models.HandlerResult, failed models.HandlerID, cause string, skipped []models.HandlerID) string {
	var b strings.Builder
	for _, id := range queue {
		r, ok := results[id]
		if !ok || r.Failed {
			continue
		}
		if len(queue) > 1 {
			fmt.Fprintf(&b, "**%s ANALYSIS**\n%s\n", strings.ToUpper(id.Label()), sectionRule)
		}
		b.WriteString(strings.TrimSpace(r.Output))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "⚠ The %s step failed (%s).", failed.Label(), cause)
	if len(skipped) > 0 {
		labels := make([]string, 0, len(skipped))
		for _, id := range skipped {
			labels = append(labels, id.Label())
		}
		fmt.Fprintf(&b, " Remaining steps were skipped: %s.", strings.Join(labels, ", "))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
