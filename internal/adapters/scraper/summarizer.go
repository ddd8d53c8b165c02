package scraper

import (
	"context"
	"strings"
	"unicode/utf8"

	"stockcrew/internal/adapters/ai"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
	"stockcrew/pkg/templates"
)

// DefaultChunkSize is the number of characters summarised per model call
const DefaultChunkSize = 8000

// Summarizer condenses long page text chunk by chunk with a chat model
type Summarizer struct {
	provider    ai.ChatProvider
	model       string
	temperature float64
	chunkSize   int
	prompts     *templates.Registry
	log         *logger.Logger
}

// NewSummarizer creates a summarizer bound to one provider and model
func NewSummarizer(provider ai.ChatProvider, model string, temperature float64, chunkSize int) *Summarizer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Summarizer{
		provider:    provider,
		model:       model,
		temperature: temperature,
		chunkSize:   chunkSize,
		prompts:     templates.Get(),
		log:         logger.Get().With("component", "summarizer", "model", model),
	}
}

// Summarize returns one summary per chunk joined by a blank line
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	chunks := Chunk(text, s.chunkSize)
	if len(chunks) == 0 {
		return "", errors.Wrap(errors.ErrInvalidInput, "nothing to summarize")
	}

	system, err := s.prompts.Render("tools/summarizer_system", nil)
	if err != nil {
		return "", err
	}

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		prompt, err := s.prompts.Render("tools/summarize_chunk", map[string]string{"Content": chunk})
		if err != nil {
			return "", err
		}

		resp, err := s.provider.Chat(ctx, ai.ChatRequest{
			Model:       s.model,
			Temperature: s.temperature,
			Messages: []ai.Message{
				{Role: ai.RoleSystem, Content: system},
				{Role: ai.RoleUser, Content: prompt},
			},
		})
		if err != nil {
			return "", errors.Wrapf(err, "summarize chunk %d/%d", i+1, len(chunks))
		}
		if len(resp.Choices) == 0 {
			return "", errors.Wrapf(errors.ErrInternal, "empty summary for chunk %d", i+1)
		}
		summaries = append(summaries, strings.TrimSpace(resp.Choices[0].Message.Content))
	}

	s.log.Debugw("Summarized page", "chunks", len(chunks), "chars", utf8.RuneCountInString(text))
	return strings.Join(summaries, "\n\n"), nil
}

// Chunk splits text into pieces of at most size characters
func Chunk(text string, size int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 || size <= 0 {
		return nil
	}

	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
