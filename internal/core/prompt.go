// ABOUTME: PlannerPrompt is the context handed to the decision-making capability
// ABOUTME: Renders the system and user text used by LLM-backed deciders
package core

import (
	"fmt"
	"strings"

	"github.com/harper/finrouter/internal/models"
)

// PlannerPrompt is the input of one planner decision
type PlannerPrompt struct {
	Message     string
	History     []models.Message
	Handlers    []HandlerInfo
	Hints       map[string]any
	UserContext models.UserContext
	LastHandler models.HandlerID
}

// SystemText renders the instructions for the decision-making capability
func (p PlannerPrompt) SystemText() string {
	var b strings.Builder
	b.WriteString("You route questions for a financial assistant to specialized handlers.\n")
	b.WriteString("Pick the handler, or the ordered handlers, that should answer the latest question.\n\n")
	b.WriteString("Available handlers:\n")
	for _, h := range p.Handlers {
		fmt.Fprintf(&b, "- %s: %s\n", h.ID, h.Description)
	}
	b.WriteString(`
Rules:
- Most questions need exactly one handler. Use execution_mode "single".
- Use "sequential" only when the answer must combine several domains. List the
  first handler as primary_handler and the rest, in order, as secondary_handlers.
- "my portfolio", "my holdings" and "my stocks" mean the user already owns investments (portfolio).
- "should I invest" and "thinking about investing" mean the user is still researching (news).
- Saving for something, targets and timeframes mean goal_planning.
- Concept and definition questions mean education.

Respond with JSON only:
{"primary_handler": "<id>", "secondary_handlers": ["<id>"], "execution_mode": "single|sequential", "reasoning": "<one sentence>"}
`)
	return b.String()
}

// UserText renders the question together with the conversation context and classifier hints
func (p PlannerPrompt) UserText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "User question: %q\n", p.Message)

	if ctx := p.contextLines(); len(ctx) > 0 {
		b.WriteString("\nContext:\n")
		for _, line := range ctx {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	if len(p.History) > 0 {
		fmt.Fprintf(&b, "\nRecent conversation (%s):\n", models.ContextSummary(p.History))
		for _, m := range p.History {
			fmt.Fprintf(&b, "[%s] %s\n", m.Role, models.Clip(m.Content, 300))
		}
	}

	if hints := p.hintLines(); len(hints) > 0 {
		b.WriteString("\nFast router analysis:\n")
		for _, line := range hints {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	b.WriteString("\nYour JSON response:")
	return b.String()
}

func (p PlannerPrompt) contextLines() []string {
	var lines []string
	if p.UserContext.HasPortfolio {
		lines = append(lines, "User has an existing portfolio")
	}
	if p.UserContext.HasGoals {
		lines = append(lines, "User has active financial goals")
	}
	switch p.UserContext.InvestmentStage {
	case models.StagePotential:
		lines = append(lines, "User is researching potential investments (not yet invested)")
	case models.StageCurrent:
		lines = append(lines, "User is a current investor")
	}
	if p.LastHandler != "" {
		lines = append(lines, fmt.Sprintf("Last handler used: %s", p.LastHandler))
	}
	return lines
}

func (p PlannerPrompt) hintLines() []string {
	if len(p.Hints) == 0 {
		return nil
	}
	var lines []string
	if scores, ok := p.Hints["keyword_scores"].([]HandlerScore); ok && len(scores) > 0 {
		parts := make([]string, 0, len(scores))
		for _, s := range scores {
			parts = append(parts, fmt.Sprintf("%s=%.2f", s.Handler, s.Score))
		}
		lines = append(lines, "Top keyword matches: "+strings.Join(parts, ", "))
	}
	if matched, ok := p.Hints["pattern_matched"].(bool); ok {
		lines = append(lines, fmt.Sprintf("Pattern matched: %t", matched))
	}
	winner, okW := p.Hints["winner_score"].(float64)
	margin, okM := p.Hints["margin"].(float64)
	if okW && okM {
		lines = append(lines, fmt.Sprintf("Score: %.2f, Margin: %.2f", winner, margin))
	}
	return lines
}
