package ai

import "context"

// Provider describes a hosted model vendor.
type Provider interface {
	Name() string

	// GetModel returns metadata for a specific model.
	GetModel(ctx context.Context, model string) (ModelInfo, error)

	// ListModels returns the list of known models for the provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// SupportsTools indicates whether the provider supports tool/function calling.
	SupportsTools() bool
}

// ModelInfo describes the capabilities of a model.
type ModelInfo struct {
	Provider      ProviderName
	Name          string
	Family        string
	MaxTokens     int
	SupportsTools bool
}
