package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/docchat/ai"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, the last non-empty prompt line is returned as the answer.
	GenerateFunc func(ctx context.Context, prompt string) ai.Result

	mu      sync.Mutex
	prompts []string
}

// NewMockGenerator creates a mock generator with default echo behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the prompt and returns the configured result.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) ai.Result {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}

	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	return ai.Answered(strings.TrimSpace(lines[len(lines)-1]))
}

// Prompts returns every prompt received, in call order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Reset clears recorded prompts and the custom function.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.GenerateFunc = nil
}
