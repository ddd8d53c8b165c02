package adk

import (
	"context"
	"encoding/json"
	"iter"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"stockcrew/internal/adapters/ai"
	"stockcrew/internal/metrics"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// ModelOptions tune the sampling parameters passed to the chat provider.
type ModelOptions struct {
	Temperature float64
	MaxTokens   int
}

// ModelAdapter adapts an ai.ChatProvider to ADK's model.LLM interface.
type ModelAdapter struct {
	provider  ai.ChatProvider
	modelName string
	opts      ModelOptions
	log       *logger.Logger
}

// NewModelAdapter creates a new ADK model adapter.
func NewModelAdapter(provider ai.ChatProvider, modelName string, opts ModelOptions) *ModelAdapter {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &ModelAdapter{
		provider:  provider,
		modelName: modelName,
		opts:      opts,
		log:       logger.Get().With("component", "model_adapter", "provider", provider.Name(), "model", modelName),
	}
}

// Name returns the model name.
func (m *ModelAdapter) Name() string {
	return m.modelName
}

// GenerateContent implements model.LLM. Streaming requests are served as a
// single complete response.
func (m *ModelAdapter) GenerateContent(
	ctx context.Context,
	req *model.LLMRequest,
	stream bool,
) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		chatReq, err := m.convertToChatRequest(req)
		if err != nil {
			yield(nil, errors.Wrap(err, "convert llm request"))
			return
		}

		m.log.Debugw("Calling LLM", "messages", len(chatReq.Messages), "tools", len(chatReq.Tools), "stream", stream)

		start := time.Now()
		resp, err := m.provider.Chat(ctx, chatReq)
		if err != nil {
			metrics.RecordAgentCall(m.provider.Name(), m.modelName, time.Since(start), 0, 0, err)
			m.log.Errorw("LLM call failed", "error", err)
			yield(nil, errors.Wrap(err, "chat provider failed"))
			return
		}

		metrics.RecordAgentCall(m.provider.Name(), m.modelName, time.Since(start),
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil)
		m.log.Debugw("LLM response received",
			"choices", len(resp.Choices),
			"tokens", resp.Usage.TotalTokens,
		)

		yield(m.convertToADKResponse(resp), nil)
	}
}

func (m *ModelAdapter) convertToChatRequest(req *model.LLMRequest) (ai.ChatRequest, error) {
	chatReq := ai.ChatRequest{
		Model:       m.modelName,
		MaxTokens:   m.opts.MaxTokens,
		Temperature: m.opts.Temperature,
	}

	if req.Config != nil {
		if sys := contentText(req.Config.SystemInstruction); sys != "" {
			chatReq.Messages = append(chatReq.Messages, ai.Message{Role: ai.RoleSystem, Content: sys})
		}
		for _, t := range req.Config.Tools {
			if t == nil {
				continue
			}
			for _, fd := range t.FunctionDeclarations {
				def, err := convertDeclaration(fd)
				if err != nil {
					return chatReq, err
				}
				chatReq.Tools = append(chatReq.Tools, def)
			}
		}
	}

	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		chatReq.Messages = append(chatReq.Messages, convertContent(content)...)
	}

	return chatReq, nil
}

// convertContent maps one genai content to one or more chat messages.
// Function responses become separate tool messages since each answers a
// distinct tool call.
func convertContent(content *genai.Content) []ai.Message {
	role := ai.RoleUser
	switch content.Role {
	case string(genai.RoleModel):
		role = ai.RoleAssistant
	case "system":
		role = ai.RoleSystem
	}

	msg := ai.Message{Role: role}
	var toolMsgs []ai.Message

	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			if msg.Content != "" {
				msg.Content += "\n"
			}
			msg.Content += part.Text
		}
		if fc := part.FunctionCall; fc != nil {
			args, err := json.Marshal(fc.Args)
			if err != nil || fc.Args == nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, ai.ToolCall{
				ID:   fc.ID,
				Type: "function",
				Function: ai.FunctionCall{
					Name:      fc.Name,
					Arguments: string(args),
				},
			})
		}
		if fr := part.FunctionResponse; fr != nil {
			body, err := json.Marshal(fr.Response)
			if err != nil {
				body = []byte(`{"error":"unserializable tool response"}`)
			}
			toolMsgs = append(toolMsgs, ai.Message{
				Role:       ai.RoleTool,
				Content:    string(body),
				ToolCallID: fr.ID,
				Name:       fr.Name,
			})
		}
	}

	var out []ai.Message
	if msg.Content != "" || len(msg.ToolCalls) > 0 {
		out = append(out, msg)
	}
	return append(out, toolMsgs...)
}

func convertDeclaration(fd *genai.FunctionDeclaration) (ai.ToolDefinition, error) {
	def := ai.ToolDefinition{
		Type: "function",
		Function: ai.FunctionDefinition{
			Name:        fd.Name,
			Description: fd.Description,
		},
	}

	var (
		params map[string]interface{}
		err    error
	)
	switch {
	case fd.ParametersJsonSchema != nil:
		params, err = toSchemaMap(fd.ParametersJsonSchema)
	case fd.Parameters != nil:
		params, err = toSchemaMap(fd.Parameters)
		if err == nil {
			lowercaseTypes(params)
		}
	}
	if err != nil {
		return def, errors.Wrapf(err, "schema for tool %s", fd.Name)
	}
	if params == nil {
		params = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	def.Function.Parameters = params
	return def, nil
}

func toSchemaMap(schema any) (map[string]interface{}, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// lowercaseTypes rewrites genai's upper-case OpenAPI type names ("OBJECT")
// into JSON Schema form ("object").
func lowercaseTypes(node interface{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, val := range v {
			if key == "type" {
				if s, ok := val.(string); ok {
					v[key] = strings.ToLower(s)
					continue
				}
			}
			lowercaseTypes(val)
		}
	case []interface{}:
		for _, item := range v {
			lowercaseTypes(item)
		}
	}
}

func contentText(c *genai.Content) string {
	if c == nil {
		return ""
	}
	var parts []string
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (m *ModelAdapter) convertToADKResponse(resp *ai.ChatResponse) *model.LLMResponse {
	adkResp := &model.LLMResponse{TurnComplete: true}

	if len(resp.Choices) == 0 {
		adkResp.FinishReason = genai.FinishReasonOther
		adkResp.ErrorMessage = "no choices in response"
		return adkResp
	}

	choice := resp.Choices[0]
	content := &genai.Content{Role: string(genai.RoleModel)}

	if choice.Message.Content != "" {
		content.Parts = append(content.Parts, genai.NewPartFromText(choice.Message.Content))
	}

	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				// Surface malformed arguments to the tool so the model can retry.
				m.log.Warnw("Failed to parse tool call arguments", "tool", tc.Function.Name, "error", err)
				args = map[string]any{"input": tc.Function.Arguments}
			}
		}
		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			},
		})
	}

	adkResp.Content = content

	switch choice.FinishReason {
	case ai.FinishReasonLength:
		adkResp.FinishReason = genai.FinishReasonMaxTokens
	case ai.FinishReasonFilter:
		adkResp.FinishReason = genai.FinishReasonSafety
	default:
		adkResp.FinishReason = genai.FinishReasonStop
	}

	adkResp.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(resp.Usage.PromptTokens),
		CandidatesTokenCount: int32(resp.Usage.CompletionTokens),
		TotalTokenCount:      int32(resp.Usage.TotalTokens),
	}

	return adkResp
}

var _ model.LLM = (*ModelAdapter)(nil)
