package mock

import (
	"context"
	"sync"
)

// DefaultNarrative is returned by MockNarrator when no function is injected.
const DefaultNarrative = `You two would get along well.

Similarities:
- You both enjoy spending time outdoors
- You share a love of cooking

Differences:
- One of you prefers mornings, the other nights`

// MockNarrator is a test double for ai.Narrator.
type MockNarrator struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	mu         sync.Mutex
	callCount  int
	lastPrompt string
}

// NewMockNarrator creates a mock narrator that answers with DefaultNarrative.
func NewMockNarrator() *MockNarrator {
	return &MockNarrator{}
}

// Complete records prompt and returns the injected or default narrative.
func (m *MockNarrator) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = prompt
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return DefaultNarrative, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockNarrator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the prompt of the most recent call.
func (m *MockNarrator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Reset clears call tracking and injected behavior.
func (m *MockNarrator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastPrompt = ""
	m.CompleteFunc = nil
}
