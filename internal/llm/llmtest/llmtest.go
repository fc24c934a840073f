// Package llmtest provides a scripted llm.TextGenerator for tests.
package llmtest

import (
	"context"
	"sync"

	"ai-day-planner/internal/llm"
	"ai-day-planner/internal/shared"
)

// Reply is one scripted answer.
type Reply struct {
	Content string
	Err     error
}

// MockTextGenerator answers with Replies in order, repeating the last one.
// When Gate is non-nil every call blocks until Gate is closed or the
// context ends, which lets tests hold a request in flight.
type MockTextGenerator struct {
	Replies []Reply
	Gate    chan struct{}
	// Started receives once per call, before the call blocks on Gate.
	Started chan struct{}

	mu       sync.Mutex
	requests []llm.Request
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, req llm.Request) (llm.ContentResponse, error) {
	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Started != nil {
		m.Started <- struct{}{}
	}
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return llm.ContentResponse{}, ctx.Err()
		}
	}

	if len(m.Replies) == 0 {
		return llm.ContentResponse{}, llm.ErrEmptyResponse
	}
	r := m.Replies[min(n, len(m.Replies)-1)]
	if r.Err != nil {
		return llm.ContentResponse{}, r.Err
	}
	return llm.ContentResponse{
		Content: r.Content,
		Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30, Model: "mock"},
	}, nil
}

// Calls returns how many requests were made.
func (m *MockTextGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the received requests.
func (m *MockTextGenerator) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}
