package testsupport

import (
	"context"
	"sync"

	"stockcrew/internal/adapters/ai"
	"stockcrew/pkg/errors"
)

// ChatResponder produces the reply for one chat request
type ChatResponder func(req ai.ChatRequest) (*ai.ChatResponse, error)

// MockChatProvider is an ai.ChatProvider driven by a responder function.
// Every request is recorded for later assertions.
type MockChatProvider struct {
	mu        sync.Mutex
	name      string
	responder ChatResponder
	requests  []ai.ChatRequest
}

// NewMockChatProvider creates a mock provider
func NewMockChatProvider(name string, responder ChatResponder) *MockChatProvider {
	return &MockChatProvider{name: name, responder: responder}
}

// NewTextChatProvider always answers with the given text
func NewTextChatProvider(text string) *MockChatProvider {
	return NewMockChatProvider("mock", func(ai.ChatRequest) (*ai.ChatResponse, error) {
		return TextResponse(text), nil
	})
}

// TextResponse builds a final assistant message
func TextResponse(text string) *ai.ChatResponse {
	return &ai.ChatResponse{
		ID: "mock",
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: text},
			FinishReason: ai.FinishReasonStop,
		}},
		Usage: ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// ToolCallResponse builds an assistant message requesting one tool call
func ToolCallResponse(id, name, arguments string) *ai.ChatResponse {
	return &ai.ChatResponse{
		ID: "mock",
		Choices: []ai.Choice{{
			Message: ai.Message{
				Role: ai.RoleAssistant,
				ToolCalls: []ai.ToolCall{{
					ID:       id,
					Type:     "function",
					Function: ai.FunctionCall{Name: name, Arguments: arguments},
				}},
			},
			FinishReason: ai.FinishReasonToolCalls,
		}},
	}
}

func (m *MockChatProvider) Name() string { return m.name }

func (m *MockChatProvider) GetModel(_ context.Context, model string) (ai.ModelInfo, error) {
	return ai.ModelInfo{Provider: ai.ProviderName(m.name), Name: model, SupportsTools: true}, nil
}

func (m *MockChatProvider) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	info, _ := m.GetModel(ctx, "mock-model")
	return []ai.ModelInfo{info}, nil
}

func (m *MockChatProvider) SupportsTools() bool { return true }

// Chat records the request and delegates to the responder
func (m *MockChatProvider) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.responder == nil {
		return nil, errors.Wrap(errors.ErrUnavailable, "mock provider has no responder")
	}
	return m.responder(req)
}

// Requests returns a copy of every recorded request
func (m *MockChatProvider) Requests() []ai.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

var _ ai.ChatProvider = (*MockChatProvider)(nil)
