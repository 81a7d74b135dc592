// ABOUTME: Context window trimming for handlers and the planner
// ABOUTME: Each handler sees only the most recent N messages of the thread
package models

import (
	"fmt"
	"unicode/utf8"
)

// DefaultContextMessages is the window used when a handler has no specific size
const DefaultContextMessages = 10

// handlerContextSizes mirrors how much history each handler needs.
// Planning and portfolio work looks further back than point questions.
var handlerContextSizes = map[HandlerID]int{
	HandlerEducation:    6,
	HandlerMarket:       6,
	HandlerNews:         6,
	HandlerGoalPlanning: 15,
	HandlerPortfolio:    15,
}

// TrimMessages keeps the most recent max messages
func TrimMessages(messages []Message, max int) []Message {
	if max <= 0 {
		max = DefaultContextMessages
	}
	if len(messages) <= max {
		out := make([]Message, len(messages))
		copy(out, messages)
		return out
	}
	out := make([]Message, max)
	copy(out, messages[len(messages)-max:])
	return out
}

// ContextSizeFor returns the context window of a handler
func ContextSizeFor(id HandlerID) int {
	if n, ok := handlerContextSizes[id]; ok {
		return n
	}
	return DefaultContextMessages
}

// TrimForHandler trims the log to the window the handler needs
func TrimForHandler(messages []Message, id HandlerID) []Message {
	return TrimMessages(messages, ContextSizeFor(id))
}

// ContextSummary describes a message list, e.g. "5 messages (2 turns) - 3 user, 2 assistant"
func ContextSummary(messages []Message) string {
	if len(messages) == 0 {
		return "Empty conversation"
	}
	var users, assistants int
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			users++
		case RoleAssistant:
			assistants++
		}
	}
	return fmt.Sprintf("%d messages (%d turns) - %d user, %d assistant",
		len(messages), len(messages)/2, users, assistants)
}

// Clip shortens s to at most max runes, marking the cut with "..."
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
