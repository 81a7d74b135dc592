// ABOUTME: Tests for the OpenAI and Anthropic clients against local HTTP servers
// ABOUTME: Verifies request routing, retry on bad replies and response extraction
package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harper/finrouter/internal/core"
)

func openAIReply(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
		`"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],`+
		`"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`, content)
}

func anthropicReply(text string) string {
	return fmt.Sprintf(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",`+
		`"content":[{"type":"text","text":%q}],"stop_reason":"end_turn","stop_sequence":null,`+
		`"usage":{"input_tokens":1,"output_tokens":1}}`, text)
}

func TestOpenAIClient_Decide(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		// First reply is not JSON, which forces one retry
		if calls.Add(1) == 1 {
			fmt.Fprint(w, openAIReply("market, probably"))
			return
		}
		fmt.Fprint(w, openAIReply(`{"primary_handler":"market","execution_mode":"single","reasoning":"market question"}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClientWithConfig(&ClientConfig{
		APIKey:     "sk-test",
		BaseURL:    srv.URL + "/v1",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClientWithConfig() error = %v", err)
	}

	shape, err := client.Decide(context.Background(), core.PlannerPrompt{Message: "how are markets"})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if shape.PrimaryHandler != "market" {
		t.Errorf("PrimaryHandler = %q, want market", shape.PrimaryHandler)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openAIReply("A 401k is a retirement account."))
	}))
	defer srv.Close()

	client, err := NewOpenAIClientWithConfig(&ClientConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("NewOpenAIClientWithConfig() error = %v", err)
	}
	if client.Model() != DefaultChatModel {
		t.Errorf("Model() = %q, want %q", client.Model(), DefaultChatModel)
	}

	text, err := client.Complete(context.Background(), "system", "what is a 401k")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "A 401k is a retirement account." {
		t.Errorf("Complete() = %q", text)
	}
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(""); err == nil {
		t.Error("NewOpenAIClient() should require an API key")
	}
}

func TestAnthropicClient_DecideAndComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, anthropicReply(`{"primary_handler":"news","execution_mode":"single"}`))
	}))
	defer srv.Close()

	client, err := NewAnthropicClient(AnthropicConfig{
		APIKey:     "sk-ant-test",
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewAnthropicClient() error = %v", err)
	}

	shape, err := client.Decide(context.Background(), core.PlannerPrompt{Message: "any news on NVDA"})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if shape.PrimaryHandler != "news" {
		t.Errorf("PrimaryHandler = %q, want news", shape.PrimaryHandler)
	}

	text, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(text, "primary_handler") {
		t.Errorf("Complete() = %q", text)
	}
}

func TestNewAnthropicClient_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicClient(AnthropicConfig{}); err == nil {
		t.Error("NewAnthropicClient() should require an API key")
	}
}
