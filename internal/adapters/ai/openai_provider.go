package ai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared/constant"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
// Groq is served by the same implementation with a different base URL.
type OpenAIProvider struct {
	name        ProviderName
	client      openai.Client
	timeout     time.Duration
	rateLimiter RateLimiter
	models      []ModelInfo
	log         *logger.Logger
}

// ProviderOptions configures an OpenAI-compatible provider.
type ProviderOptions struct {
	APIKey      string
	BaseURL     string // empty = vendor default
	Timeout     time.Duration
	RateLimiter RateLimiter
}

// NewOpenAIProvider creates the OpenAI provider.
func NewOpenAIProvider(opts ProviderOptions) (*OpenAIProvider, error) {
	return newCompatProvider(ProviderNameOpenAI, opts, openAIModels())
}

// NewGroqProvider creates the Groq provider on its OpenAI-compatible API.
func NewGroqProvider(opts ProviderOptions) (*OpenAIProvider, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = groqBaseURL
	}
	return newCompatProvider(ProviderNameGroq, opts, groqModels())
}

func newCompatProvider(name ProviderName, opts ProviderOptions, models []ModelInfo) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrMissingCredentials, "%s API key is required", name)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = NewNoOpLimiter()
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(2),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIProvider{
		name:        name,
		client:      openai.NewClient(clientOpts...),
		timeout:     opts.Timeout,
		rateLimiter: opts.RateLimiter,
		models:      models,
		log:         logger.Get().With("component", "llm_provider", "provider", name),
	}, nil
}

// Name returns provider name.
func (p *OpenAIProvider) Name() string { return string(p.name) }

// GetModel returns model info by name.
func (p *OpenAIProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	for _, m := range p.models {
		if strings.EqualFold(m.Name, model) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrNotFound, "%s model %s not found", p.name, model)
}

// ListModels lists known models.
func (p *OpenAIProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// SupportsTools indicates tool calling support.
func (p *OpenAIProvider) SupportsTools() bool { return true }

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{Provider: p.name, Limit: p.rateLimiter.Limit(), Err: err}
	}

	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "%s chat completion", p.name)
	}

	return p.convertResponse(resp), nil
}

func (p *OpenAIProvider) buildParams(req ChatRequest) (openai.ChatCompletionNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}

	for _, msg := range req.Messages {
		converted, err := convertMessage(msg)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, converted)
	}

	for _, t := range req.Tools {
		def := openai.FunctionDefinitionParam{
			Name:       t.Function.Name,
			Parameters: openai.FunctionParameters(t.Function.Parameters),
		}
		if t.Function.Description != "" {
			def.Description = param.NewOpt(t.Function.Description)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(def))
	}

	return params, nil
}

func convertMessage(msg Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case RoleSystem:
		return openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: param.NewOpt(msg.Content)},
			},
		}, nil
	case RoleUser:
		return openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: param.NewOpt(msg.Content)},
			},
		}, nil
	case RoleAssistant:
		asst := &openai.ChatCompletionAssistantMessageParam{}
		if msg.Content != "" {
			asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: param.NewOpt(msg.Content)}
		}
		for _, tc := range msg.ToolCalls {
			args := tc.Function.Arguments
			if args == "" {
				args = "{}"
			}
			asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: args,
					},
					Type: constant.ValueOf[constant.Function](),
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: asst}, nil
	case RoleTool:
		if msg.ToolCallID == "" {
			return openai.ChatCompletionMessageParamUnion{}, errors.Wrap(errors.ErrInvalidInput, "tool message without tool call id")
		}
		return openai.ChatCompletionMessageParamUnion{
			OfTool: &openai.ChatCompletionToolMessageParam{
				Content:    openai.ChatCompletionToolMessageParamContentUnion{OfString: param.NewOpt(msg.Content)},
				ToolCallID: msg.ToolCallID,
			},
		}, nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, errors.Wrapf(errors.ErrInvalidInput, "unknown message role %q", msg.Role)
	}
}

func (p *OpenAIProvider) convertResponse(resp *openai.ChatCompletion) *ChatResponse {
	out := &ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	for _, choice := range resp.Choices {
		msg := Message{
			Role:    RoleAssistant,
			Content: choice.Message.Content,
		}
		for _, tc := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		out.Choices = append(out.Choices, Choice{
			Index:        int(choice.Index),
			Message:      msg,
			FinishReason: convertFinishReason(choice.FinishReason),
		})
	}

	return out
}

func convertFinishReason(reason string) FinishReason {
	switch reason {
	case "length":
		return FinishReasonLength
	case "tool_calls", "function_call":
		return FinishReasonToolCalls
	case "content_filter":
		return FinishReasonFilter
	default:
		return FinishReasonStop
	}
}

func openAIModels() []ModelInfo {
	return []ModelInfo{
		{Provider: ProviderNameOpenAI, Name: string(ModelGPT35Turbo), Family: "gpt-3.5", MaxTokens: 16385, SupportsTools: true},
		{Provider: ProviderNameOpenAI, Name: string(ModelGPT4oMini), Family: "gpt-4o", MaxTokens: 128000, SupportsTools: true},
	}
}

func groqModels() []ModelInfo {
	return []ModelInfo{
		{Provider: ProviderNameGroq, Name: string(ModelLlama3_70B), Family: "llama3", MaxTokens: 8192, SupportsTools: true},
		{Provider: ProviderNameGroq, Name: string(ModelLlama33_70B), Family: "llama3", MaxTokens: 131072, SupportsTools: true},
		{Provider: ProviderNameGroq, Name: string(ModelMixtral8x7B), Family: "mixtral", MaxTokens: 32768, SupportsTools: true},
	}
}

var _ ChatProvider = (*OpenAIProvider)(nil)
