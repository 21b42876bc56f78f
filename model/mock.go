package model

import (
	"context"
	"fmt"
	"sync"
)

// MockCall records one request received by a MockModel.
type MockCall struct {
	Prompt string
	N      int
	Stream bool
}

// MockModel is a lightweight in-memory ChatClient useful for tests & examples.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	opts      Options
	responses map[string][]string
	fallback  []string
	err       error
	calls     []MockCall
}

// NewMockModel constructs a MockModel. Options behave as for real adapters
// (streaming writes to the stream writer).
func NewMockModel(name, provider string, opts ...Option) *MockModel {
	o := NewOptions(opts...)
	return &MockModel{
		info:      Info{Name: name, Provider: provider, Streaming: o.Stream},
		opts:      o,
		responses: make(map[string][]string),
	}
}

// AddResponse registers deterministic completions for an input prompt. The
// i-th completion of a batch is completions[i].
func (m *MockModel) AddResponse(prompt string, completions ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = completions
}

// SetDefaultResponse registers completions returned for unknown prompts.
func (m *MockModel) SetDefaultResponse(completions ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = completions
}

// SetError makes every following call fail with err.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the requests received so far.
func (m *MockModel) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// Invoke implements ChatClient.
func (m *MockModel) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := m.generate(ctx, prompt, 1)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// BatchGenerate implements ChatClient.
func (m *MockModel) BatchGenerate(ctx context.Context, prompt string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("mock: invalid completion count %d", n)
	}
	return m.generate(ctx, prompt, n)
}

func (m *MockModel) generate(ctx context.Context, prompt string, n int) ([]string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, N: n, Stream: m.opts.Stream})
	scripted, ok := m.responses[prompt]
	if !ok {
		scripted = m.fallback
	}
	err := m.err
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	out := make([]string, n)
	for i := range out {
		if i < len(scripted) {
			out[i] = scripted[i]
			continue
		}
		out[i] = fmt.Sprintf("Mock response to: %s", prompt)
	}

	if m.opts.Stream {
		for _, r := range out[0] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := fmt.Fprint(m.opts.StreamWriter, string(r)); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// Info implements ChatClient.
func (m *MockModel) Info() Info { return m.info }
