package llm

import (
	"context"
	"fmt"

	"github.com/teamkit/teamkit/internal/ports"
)

// MockProvider answers chat requests with a canned, deterministic reply
// that echoes the most recent user message. It has no network
// dependency and exists for local dry runs of teamd/teamctl when no
// real provider credentials are configured; concrete providers
// (OpenAI, Anthropic, Kimi, ...) are external to this module.
type MockProvider struct{}

// NewMockBuilder returns a Builder that always yields a MockProvider,
// ignoring the requested ClientKey.
func NewMockBuilder() Builder {
	return func(ClientKey) (ports.LLMProvider, error) { return MockProvider{}, nil }
}

// Chat implements ports.LLMProvider.
func (MockProvider) Chat(_ context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	var last ports.ChatMessage
	for _, m := range req.Messages {
		if m.Role == ports.RoleUser {
			last = m
		}
	}
	content := "mock response"
	if last.Content != "" {
		content = fmt.Sprintf("acknowledged: %s", truncate(last.Content, 120))
	}
	return ports.ChatResponse{
		Content: content,
		Usage:   ports.TokenUsage{PromptTokens: estimateWords(req.Messages), CompletionTokens: len(content) / 4},
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func estimateWords(msgs []ports.ChatMessage) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Content) / 4
	}
	return total
}
