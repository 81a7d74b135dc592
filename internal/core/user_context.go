// ABOUTME: Learns durable facts about the user from which handlers answered them
// ABOUTME: Portfolio use marks a current investor; research questions mark a potential one
package core

import (
	"strings"

	"github.com/harper/finrouter/internal/models"
)

var (
	researchPhrases = []string{"should i invest", "thinking about investing", "considering investing"}
	goalPhrases     = []string{"create", "new goal", "save for", "saving for"}
)

// UpdateUserContext returns the user context after handler answered message,
// and whether anything changed
func UpdateUserContext(uc models.UserContext, handler models.HandlerID, message string) (models.UserContext, bool) {
	before := uc
	text := strings.ToLower(message)

	switch handler {
	case models.HandlerPortfolio:
		uc.HasPortfolio = true
		uc.InvestmentStage = models.StageCurrent
	case models.HandlerNews:
		if uc.InvestmentStage != models.StageCurrent && containsAny(text, researchPhrases) {
			uc.InvestmentStage = models.StagePotential
		}
	case models.HandlerGoalPlanning:
		if containsAny(text, goalPhrases) {
			uc.HasGoals = true
		}
	}
	return uc, uc != before
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
