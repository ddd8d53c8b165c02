package adk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"stockcrew/internal/adapters/ai"
	"stockcrew/internal/testsupport"
)

func TestConvertToChatRequest(t *testing.T) {
	provider := testsupport.NewTextChatProvider("ok")
	adapter := NewModelAdapter(provider, "llama3-70b-8192", ModelOptions{Temperature: 0.4})

	req := &model.LLMRequest{
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("You are a Staff Research Analyst.", genai.RoleUser),
			Tools: []*genai.Tool{{
				FunctionDeclarations: []*genai.FunctionDeclaration{
					{
						Name:        "get_stock_info",
						Description: "Retrieves a key from the stock info dictionary.",
						Parameters: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"symbol": {Type: genai.TypeString},
								"key":    {Type: genai.TypeString},
							},
							Required: []string{"symbol", "key"},
						},
					},
					{
						Name:                 "calculate",
						ParametersJsonSchema: map[string]any{"type": "object", "properties": map[string]any{"operation": map[string]any{"type": "string"}}},
					},
					{Name: "no_args"},
				},
			}},
		},
		Contents: []*genai.Content{
			genai.NewContentFromText("Analyze AAPL", genai.RoleUser),
			{
				Role: string(genai.RoleModel),
				Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{
					ID: "call_1", Name: "get_stock_info", Args: map[string]any{"symbol": "AAPL", "key": "trailingPE"},
				}}},
			},
			{
				Role: string(genai.RoleUser),
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID: "call_1", Name: "get_stock_info", Response: map[string]any{"result": "31.2"},
				}}},
			},
		},
	}

	chatReq, err := adapter.convertToChatRequest(req)
	require.NoError(t, err)

	assert.Equal(t, 0.4, chatReq.Temperature)
	assert.Equal(t, 4096, chatReq.MaxTokens)

	require.Len(t, chatReq.Messages, 4)
	assert.Equal(t, ai.RoleSystem, chatReq.Messages[0].Role)
	assert.Equal(t, "You are a Staff Research Analyst.", chatReq.Messages[0].Content)

	assert.Equal(t, ai.RoleUser, chatReq.Messages[1].Role)

	assistant := chatReq.Messages[2]
	assert.Equal(t, ai.RoleAssistant, assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.JSONEq(t, `{"symbol":"AAPL","key":"trailingPE"}`, assistant.ToolCalls[0].Function.Arguments)

	toolMsg := chatReq.Messages[3]
	assert.Equal(t, ai.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.JSONEq(t, `{"result":"31.2"}`, toolMsg.Content)

	require.Len(t, chatReq.Tools, 3)
	params := chatReq.Tools[0].Function.Parameters
	assert.Equal(t, "object", params["type"])
	props := params["properties"].(map[string]interface{})
	assert.Equal(t, "string", props["symbol"].(map[string]interface{})["type"])

	assert.Equal(t, "object", chatReq.Tools[1].Function.Parameters["type"])
	assert.Equal(t, "object", chatReq.Tools[2].Function.Parameters["type"])
}

func TestGenerateContentToolCall(t *testing.T) {
	provider := testsupport.NewMockChatProvider("mock", func(ai.ChatRequest) (*ai.ChatResponse, error) {
		return testsupport.ToolCallResponse("call_9", "get_historical_price", `{"symbol":"MSFT","start_date":"2023-01-01","end_date":"2023-12-31"}`), nil
	})
	adapter := NewModelAdapter(provider, "m", ModelOptions{})

	var responses []*model.LLMResponse
	for resp, err := range adapter.GenerateContent(context.Background(), &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("chart it", genai.RoleUser)},
	}, false) {
		require.NoError(t, err)
		responses = append(responses, resp)
	}

	require.Len(t, responses, 1)
	resp := responses[0]
	assert.True(t, resp.TurnComplete)
	require.NotNil(t, resp.Content)
	require.Len(t, resp.Content.Parts, 1)
	fc := resp.Content.Parts[0].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "call_9", fc.ID)
	assert.Equal(t, "get_historical_price", fc.Name)
	assert.Equal(t, "MSFT", fc.Args["symbol"])
}

func TestGenerateContentMalformedArguments(t *testing.T) {
	provider := testsupport.NewMockChatProvider("mock", func(ai.ChatRequest) (*ai.ChatResponse, error) {
		return testsupport.ToolCallResponse("c", "calculate", `2*3`), nil
	})
	adapter := NewModelAdapter(provider, "m", ModelOptions{})

	for resp, err := range adapter.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		require.NoError(t, err)
		assert.Equal(t, "2*3", resp.Content.Parts[0].FunctionCall.Args["input"])
	}
}

func TestGenerateContentEmptyChoices(t *testing.T) {
	provider := testsupport.NewMockChatProvider("mock", func(ai.ChatRequest) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{}, nil
	})
	adapter := NewModelAdapter(provider, "m", ModelOptions{})

	for resp, err := range adapter.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		require.NoError(t, err)
		assert.Equal(t, genai.FinishReasonOther, resp.FinishReason)
		assert.NotEmpty(t, resp.ErrorMessage)
	}
}

func TestGenerateContentProviderError(t *testing.T) {
	provider := testsupport.NewMockChatProvider("mock", nil)
	adapter := NewModelAdapter(provider, "m", ModelOptions{})

	var gotErr error
	for _, err := range adapter.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		gotErr = err
	}
	assert.Error(t, gotErr)
}
