package localmodel

import (
	"context"
	"fmt"
)

// MockChatter returns scripted responses for local runs and tests.
type MockChatter struct {
	queue           []mockTurn
	defaultResponse string
	Calls           int
	Prompts         []string
}

type mockTurn struct {
	resp *ChatResponse
	err  error
}

// NewMockChatter creates a mock with a default response.
func NewMockChatter() *MockChatter {
	return &MockChatter{defaultResponse: "mock response:"}
}

// EnqueueResponse scripts the next Chat call to return resp.
func (m *MockChatter) EnqueueResponse(resp *ChatResponse) {
	m.queue = append(m.queue, mockTurn{resp: resp})
}

// EnqueueText scripts the next Chat call to return a plain text response.
func (m *MockChatter) EnqueueText(text string, tokens int, durationMs int64) {
	m.EnqueueResponse(&ChatResponse{
		Response:   text,
		Model:      "mock-1",
		TokensUsed: tokens,
		DurationMs: durationMs,
		DoneReason: "stop",
	})
}

// EnqueueError scripts the next Chat call to fail.
func (m *MockChatter) EnqueueError(err error) {
	m.queue = append(m.queue, mockTurn{err: err})
}

// Chat pops the next scripted turn, or echoes the prompt when unscripted.
func (m *MockChatter) Chat(_ context.Context, prompt string, opts ChatOptions) (*ChatResponse, error) {
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)

	if len(m.queue) > 0 {
		turn := m.queue[0]
		m.queue = m.queue[1:]
		if turn.err != nil {
			return nil, turn.err
		}
		return turn.resp, nil
	}

	model := opts.Model
	if model == "" {
		model = "mock-1"
	}
	return &ChatResponse{
		Response:   fmt.Sprintf("%s\n%s", m.defaultResponse, prompt),
		Model:      model,
		TokensUsed: len(prompt) / 4,
		DurationMs: 1,
		DoneReason: "stop",
	}, nil
}
