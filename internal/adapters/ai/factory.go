package ai

import (
	"strings"

	"stockcrew/internal/adapters/config"
	"stockcrew/pkg/errors"
)

// BuildRegistry registers every provider that has a key configured.
// Each provider gets its own token bucket.
func BuildRegistry(cfg config.LLMConfig) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()

	if cfg.OpenAIKey != "" {
		p, err := NewOpenAIProvider(ProviderOptions{
			APIKey:      cfg.OpenAIKey,
			Timeout:     cfg.Timeout,
			RateLimiter: NewRateLimiter(ProviderNameOpenAI, cfg.ReqPerMinute),
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	if cfg.GroqKey != "" {
		p, err := NewGroqProvider(ProviderOptions{
			APIKey:      cfg.GroqKey,
			Timeout:     cfg.Timeout,
			RateLimiter: NewRateLimiter(ProviderNameGroq, cfg.ReqPerMinute),
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	if len(registry.Names()) == 0 {
		return nil, errors.Wrap(errors.ErrMissingCredentials, "no LLM provider configured")
	}

	return registry, nil
}

// NormalizeProviderName makes provider lookup more forgiving.
func NormalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
