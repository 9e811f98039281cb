// Package llmtest provides a func-field mock of llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/design-coach/internal/llm"
)

// MockClient implements llm.Client. Unset funcs return an empty JSON object.
// Every request is recorded and can be read back with Requests.
type MockClient struct {
	GenerateJSONFunc func(ctx context.Context, req llm.Request) (string, error)
	GetModelFunc     func(tier llm.ModelTier) string
	CloseFunc        func() error

	mu       sync.Mutex
	requests []llm.Request
}

// GenerateJSON implements llm.Client.
func (m *MockClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, req)
	}
	return "{}", nil
}

// GetModel implements llm.Client.
func (m *MockClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

// Close implements llm.Client.
func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Requests returns a copy of the recorded requests.
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reply returns a GenerateJSONFunc that answers with the first response whose key is
// contained in the request's system prompt, or "{}" when none matches.
func Reply(responses map[string]string) func(context.Context, llm.Request) (string, error) {
	return func(_ context.Context, req llm.Request) (string, error) {
		for key, body := range responses {
			if strings.Contains(req.System, key) {
				return body, nil
			}
		}
		return "{}", nil
	}
}
