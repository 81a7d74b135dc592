// ABOUTME: HandlerID is the closed set of specialized request handlers
// ABOUTME: Also defines the fixed priority order used for deterministic tie-breaks
package models

import (
	"fmt"
	"strings"
)

// HandlerID identifies a registered request handler
type HandlerID string

const (
	// HandlerEducation - general financial education (concepts, definitions)
	HandlerEducation HandlerID = "education"

	// HandlerGoalPlanning - savings goals, retirement targets, affordability
	HandlerGoalPlanning HandlerID = "goal_planning"

	// HandlerPortfolio - analysis of holdings the user already owns
	HandlerPortfolio HandlerID = "portfolio"

	// HandlerMarket - prices, indices, sectors, technicals
	HandlerMarket HandlerID = "market"

	// HandlerNews - research for people considering an investment
	HandlerNews HandlerID = "news"
)

// HandlerPriority is the fixed order used whenever two handlers tie.
// Earlier entries win. Domain-specific handlers come before education,
// which is the broadest handler.
var HandlerPriority = []HandlerID{
	HandlerPortfolio,
	HandlerGoalPlanning,
	HandlerMarket,
	HandlerNews,
	HandlerEducation,
}

var handlerLabels = map[HandlerID]string{
	HandlerEducation:    "Education",
	HandlerGoalPlanning: "Goal Planning",
	HandlerPortfolio:    "Portfolio",
	HandlerMarket:       "Market",
	HandlerNews:         "News",
}

// AllHandlers returns every known handler in priority order
func AllHandlers() []HandlerID {
	out := make([]HandlerID, len(HandlerPriority))
	copy(out, HandlerPriority)
	return out
}

// IsValid reports whether the id is one of the known handlers
func (h HandlerID) IsValid() bool {
	_, ok := handlerLabels[h]
	return ok
}

// Label returns the human readable name of the handler
func (h HandlerID) Label() string {
	if label, ok := handlerLabels[h]; ok {
		return label
	}
	return string(h)
}

// Rank returns the position of the handler in HandlerPriority (lower wins).
// Unknown ids rank after every known handler.
func (h HandlerID) Rank() int {
	for i, id := range HandlerPriority {
		if id == h {
			return i
		}
	}
	return len(HandlerPriority)
}

// ParseHandlerID converts a free-form name into a HandlerID.
// Accepts "goal_planning", "Goal-Planning", " market " and the like.
func ParseHandlerID(s string) (HandlerID, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	id := HandlerID(normalized)
	if !id.IsValid() {
		return "", fmt.Errorf("unknown handler %q", s)
	}
	return id, nil
}
