// ABOUTME: Message is one entry of a conversation thread's append-only log
// ABOUTME: Core data structure shared by classifier, planner, handlers and storage
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single entry of the conversation log
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Handler   HandlerID `json:"handler,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserMessage creates a user message with validation
func NewUserMessage(content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("message content cannot be empty")
	}
	return &Message{
		ID:        generateMessageID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewAssistantMessage creates a message authored by a handler (or the aggregator when handler is empty)
func NewAssistantMessage(handler HandlerID, content string) Message {
	return Message{
		ID:        generateMessageID(),
		Role:      RoleAssistant,
		Content:   content,
		Handler:   handler,
		CreatedAt: time.Now().UTC(),
	}
}

// generateMessageID generates a unique message identifier
func generateMessageID() string {
	return fmt.Sprintf("msg_%s_%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
}

// NewThreadID generates a fresh conversation thread identifier
func NewThreadID() string {
	return "thread_" + uuid.New().String()
}

// LastUserMessage returns the most recent user message in the log
func LastUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}

// LastAssistantHandler returns the handler that wrote the most recent handler-authored message
func LastAssistantHandler(messages []Message) (HandlerID, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant && messages[i].Handler != "" {
			return messages[i].Handler, true
		}
	}
	return "", false
}
