package embeddings

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// OpenAIProvider embeds text with the OpenAI embeddings endpoint
type OpenAIProvider struct {
	client  openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
	log     *logger.Logger
}

// OpenAIOptions configures the provider; BaseURL is only set by tests
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewOpenAIProvider creates a new OpenAI embedding provider
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.Wrap(errors.ErrMissingCredentials, "openai API key is required for embeddings")
	}
	if opts.Model == "" {
		opts.Model = openai.EmbeddingModelTextEmbedding3Small
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIProvider{
		client:  openai.NewClient(reqOpts...),
		model:   openai.EmbeddingModel(opts.Model),
		timeout: opts.Timeout,
		log:     logger.Get().With("component", "openai_embeddings", "model", opts.Model),
	}, nil
}

// GenerateBatchEmbeddings embeds texts in one API call
func (p *OpenAIProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "texts cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	response, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: p.model,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai embeddings call failed")
	}

	if len(response.Data) != len(texts) {
		return nil, errors.Wrapf(errors.ErrInternal, "expected %d embeddings, got %d", len(texts), len(response.Data))
	}

	out := make([][]float32, len(response.Data))
	for _, data := range response.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(out) {
			return nil, errors.Wrapf(errors.ErrInternal, "embedding index %d out of range", idx)
		}
		vec := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			vec[j] = float32(val)
		}
		out[idx] = vec
	}

	p.log.Debugw("Generated batch embeddings",
		"batch_size", len(texts),
		"tokens_used", response.Usage.TotalTokens)

	return out, nil
}

// Name returns the model name
func (p *OpenAIProvider) Name() string {
	return string(p.model)
}
