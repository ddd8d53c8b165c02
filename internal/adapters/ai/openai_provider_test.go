package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/internal/adapters/config"
	"stockcrew/pkg/errors"
)

const completionWithToolCall = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama3-70b-8192",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "get_stock_info", "arguments": "{\"symbol\":\"AAPL\",\"key\":\"trailingPE\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
}`

func TestGroqProviderChat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionWithToolCall))
	}))
	defer srv.Close()

	provider, err := NewGroqProvider(ProviderOptions{APIKey: "gsk-test", BaseURL: srv.URL + "/openai/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "groq", provider.Name())

	resp, err := provider.Chat(context.Background(), ChatRequest{
		Model:       string(ModelLlama3_70B),
		Temperature: 0.4,
		Messages: []Message{
			{Role: RoleSystem, Content: "You are Interactive Stock Analyst."},
			{Role: RoleUser, Content: "P/E of AAPL?"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_0", Type: "function", Function: FunctionCall{Name: "get_stock_info", Arguments: `{"symbol":"AAPL"}`}}}},
			{Role: RoleTool, ToolCallID: "call_0", Content: `{"result":"29.1"}`},
		},
		Tools: []ToolDefinition{{
			Type: "function",
			Function: FunctionDefinition{
				Name:        "get_stock_info",
				Description: "Retrieves one stock info field",
				Parameters:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{"symbol": map[string]interface{}{"type": "string"}}},
			},
		}},
	})
	require.NoError(t, err)

	t.Run("request", func(t *testing.T) {
		assert.Equal(t, "llama3-70b-8192", captured["model"])
		assert.EqualValues(t, 4096, captured["max_tokens"])

		messages := captured["messages"].([]any)
		require.Len(t, messages, 4)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "call_0", messages[3].(map[string]any)["tool_call_id"])

		tools := captured["tools"].([]any)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		assert.Equal(t, "get_stock_info", fn["name"])
	})

	t.Run("response", func(t *testing.T) {
		require.Len(t, resp.Choices, 1)
		choice := resp.Choices[0]
		assert.Equal(t, FinishReasonToolCalls, choice.FinishReason)
		require.Len(t, choice.Message.ToolCalls, 1)
		assert.Equal(t, "call_1", choice.Message.ToolCalls[0].ID)
		assert.Equal(t, "get_stock_info", choice.Message.ToolCalls[0].Function.Name)
		assert.Equal(t, 20, resp.Usage.TotalTokens)
	})
}

func TestProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(ProviderOptions{})
	assert.True(t, errors.Is(err, errors.ErrMissingCredentials))
}

func TestToolMessageNeedsCallID(t *testing.T) {
	_, err := convertMessage(Message{Role: RoleTool, Content: "x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestBuildRegistry(t *testing.T) {
	_, err := BuildRegistry(config.LLMConfig{})
	assert.True(t, errors.Is(err, errors.ErrMissingCredentials))

	registry, err := BuildRegistry(config.LLMConfig{GroqKey: "gsk", OpenAIKey: "sk", ReqPerMinute: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{"groq", "openai"}, registry.Names())

	info, err := registry.ResolveModel(context.Background(), "GROQ", "llama3-70b-8192")
	require.NoError(t, err)
	assert.Equal(t, 8192, info.MaxTokens)

	_, err = registry.Get("claude")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
