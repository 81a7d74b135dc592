// ABOUTME: Classifier is the fast router that picks a handler without any external call
// ABOUTME: Pattern rules first (specific tier, then generic), then weighted keyword scoring
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harper/finrouter/internal/models"
)

const (
	// DefaultDirectThreshold is the confidence needed to skip the planner
	DefaultDirectThreshold = 0.85

	// PatternConfidence is reported whenever a pattern rule matches
	PatternConfidence = models.PatternConfidence

	// EmptyInputConfidence is reported when there is nothing to classify
	EmptyInputConfidence = 0.5

	// ContinuityBoost is added when the winner also wrote the previous answer
	ContinuityBoost = 0.05

	hintTopN = 3
)

// ClassifierOptions configures a Classifier
type ClassifierOptions struct {
	Threshold      float64
	DefaultHandler models.HandlerID
}

// Classifier routes a message log to a handler, or escalates to the planner
type Classifier struct {
	rules          *RuleSet
	threshold      float64
	defaultHandler models.HandlerID
}

// NewClassifier creates a Classifier. A nil rule set uses the built-in tables.
// Thresholds above PatternConfidence are clamped to it.
func NewClassifier(rules *RuleSet, opts ClassifierOptions) *Classifier {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultDirectThreshold
	}
	if opts.Threshold > PatternConfidence {
		opts.Threshold = PatternConfidence
	}
	if !opts.DefaultHandler.IsValid() {
		opts.DefaultHandler = models.HandlerEducation
	}
	return &Classifier{
		rules:          rules,
		threshold:      opts.Threshold,
		defaultHandler: opts.DefaultHandler,
	}
}

// Threshold returns the direct-routing confidence threshold
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// RuleMatch is a pattern rule that accepted the message
type RuleMatch struct {
	Rule     string           `json:"rule"`
	Handler  models.HandlerID `json:"handler"`
	Tier     RuleTier         `json:"tier"`
	Priority int              `json:"priority"`
}

// HandlerScore is the normalized keyword score of one handler's best table
type HandlerScore struct {
	Handler models.HandlerID `json:"handler"`
	Score   float64          `json:"score"`
	Table   string           `json:"table,omitempty"`
	Matched []string         `json:"matched,omitempty"`
}

// RoutingAnalysis is everything the classifier saw while deciding
type RoutingAnalysis struct {
	Message        string                    `json:"message"`
	PatternMatches []RuleMatch               `json:"pattern_matches"`
	Scores         []HandlerScore            `json:"scores"`
	Decision       models.ClassifierDecision `json:"decision"`
}

// Classify returns the routing decision for the latest user message of the log
func (c *Classifier) Classify(messages []models.Message) models.ClassifierDecision {
	return c.Analyze(messages).Decision
}

// Analyze classifies the log and reports every rule match and keyword score
func (c *Classifier) Analyze(messages []models.Message) RoutingAnalysis {
	latest, ok := models.LastUserMessage(messages)
	if !ok || strings.TrimSpace(latest.Content) == "" {
		return RoutingAnalysis{Decision: c.emptyDecision()}
	}

	text := strings.ToLower(strings.TrimSpace(latest.Content))
	analysis := RoutingAnalysis{
		Message:        latest.Content,
		PatternMatches: c.matchRules(text),
		Scores:         c.scoreKeywords(text),
	}

	if len(analysis.PatternMatches) > 0 {
		winner := analysis.PatternMatches[0]
		analysis.Decision = models.ClassifierDecision{
			Route:      models.RouteDirect,
			Handler:    winner.Handler,
			Confidence: PatternConfidence,
			Reasoning:  fmt.Sprintf("Matched %s rule %q for %s", winner.Tier, winner.Rule, winner.Handler),
			Hints: map[string]any{
				"pattern_matched": true,
				"rule":            winner.Rule,
				"tier":            string(winner.Tier),
			},
		}
		return analysis
	}

	previous, _ := models.LastAssistantHandler(messages)
	analysis.Decision = c.decideFromScores(analysis.Scores, previous)
	return analysis
}

func (c *Classifier) emptyDecision() models.ClassifierDecision {
	return models.ClassifierDecision{
		Route:      models.RouteDirect,
		Handler:    c.defaultHandler,
		Confidence: EmptyInputConfidence,
		Reasoning:  "no input provided",
		Hints:      map[string]any{"pattern_matched": false},
	}
}

// matchRules returns the matching rules in evaluation order
func (c *Classifier) matchRules(text string) []RuleMatch {
	var matches []RuleMatch
	for _, r := range c.rules.Rules {
		if r.Match(text) {
			matches = append(matches, RuleMatch{
				Rule:     r.Name,
				Handler:  r.Handler,
				Tier:     r.Tier,
				Priority: r.Priority,
			})
		}
	}
	return matches
}

// scoreKeywords returns one score per handler, best first.
// Equal scores keep HandlerPriority order.
func (c *Classifier) scoreKeywords(text string) []HandlerScore {
	scores := make([]HandlerScore, 0, len(models.HandlerPriority))
	for _, id := range models.HandlerPriority {
		hs := HandlerScore{Handler: id}
		for _, name := range c.rules.Tables(id) {
			ts := c.scoreTable(id, name, text)
			// strictly greater, so the first declared table wins ties
			if ts.Score > hs.Score {
				hs = ts
			}
		}
		scores = append(scores, hs)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

func (c *Classifier) scoreTable(id models.HandlerID, table, text string) HandlerScore {
	hs := HandlerScore{Handler: id, Table: table}
	total := c.rules.TableWeight(id, table)
	if total == 0 {
		return hs
	}
	sum := 0
	for _, kw := range c.rules.Keywords[id] {
		if kw.Table == table && kw.re.MatchString(text) {
			sum += kw.Weight
			hs.Matched = append(hs.Matched, kw.Term)
		}
	}
	hs.Score = float64(sum) / float64(total)
	return hs
}

func (c *Classifier) decideFromScores(scores []HandlerScore, previous models.HandlerID) models.ClassifierDecision {
	best := scores[0]
	runnerUp := 0.0
	if len(scores) > 1 {
		runnerUp = scores[1].Score
	}

	hints := map[string]any{
		"pattern_matched": false,
		"winner_score":    best.Score,
		"margin":          best.Score - runnerUp,
		"keyword_scores":  topScores(scores, hintTopN),
	}

	if best.Score == 0 {
		return models.ClassifierDecision{
			Route:      models.RouteNeedsPlanner,
			Confidence: 0,
			Reasoning:  "No pattern or keyword matched",
			Hints:      hints,
		}
	}

	confidence := best.Score
	if previous != "" && previous == best.Handler {
		confidence += ContinuityBoost
		hints["continuity_boost"] = true
	}
	if confidence > 1 {
		confidence = 1
	}

	decision := models.ClassifierDecision{
		Handler:    best.Handler,
		Confidence: confidence,
		Hints:      hints,
	}
	if confidence >= c.threshold {
		decision.Route = models.RouteDirect
		decision.Reasoning = fmt.Sprintf("Keyword score %.2f for %s meets threshold %.2f", confidence, best.Handler, c.threshold)
	} else {
		decision.Route = models.RouteNeedsPlanner
		decision.Reasoning = fmt.Sprintf("Best keyword score %.2f for %s is below threshold %.2f", confidence, best.Handler, c.threshold)
	}
	return decision
}

func topScores(scores []HandlerScore, n int) []HandlerScore {
	out := make([]HandlerScore, 0, n)
	for _, s := range scores {
		if len(out) == n || s.Score == 0 {
			break
		}
		out = append(out, HandlerScore{Handler: s.Handler, Score: s.Score, Table: s.Table})
	}
	return out
}
