package ai

// ProviderName represents an AI provider identifier
type ProviderName string

const (
	ProviderNameOpenAI ProviderName = "openai"
	ProviderNameGroq   ProviderName = "groq"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameOpenAI, ProviderNameGroq:
		return true
	default:
		return false
	}
}

// AllProviderNames returns all supported provider names
func AllProviderNames() []ProviderName {
	return []ProviderName{ProviderNameOpenAI, ProviderNameGroq}
}

type ProviderModelName string

const (
	ModelGPT35Turbo  ProviderModelName = "gpt-3.5-turbo-0125"
	ModelGPT4oMini   ProviderModelName = "gpt-4o-mini"
	ModelLlama3_70B  ProviderModelName = "llama3-70b-8192"
	ModelLlama33_70B ProviderModelName = "llama-3.3-70b-versatile"
	ModelMixtral8x7B ProviderModelName = "mixtral-8x7b-32768"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultMaxTokens = 4096
)
