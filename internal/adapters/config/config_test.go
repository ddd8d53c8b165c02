package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "llama3-70b-8192", cfg.LLM.Model)
	assert.Equal(t, "gpt-3.5-turbo-0125", cfg.LLM.OpenAIModel)
	assert.InDelta(t, 0.4, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, ".", cfg.Workspace.WorkDir)
	assert.Equal(t, 1, cfg.Tools.RetryAttempts)
	assert.False(t, cfg.Pipeline.CleanCharts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "gsk-test", cfg.LLM.KeyFor("GROQ"))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{LLM: LLMConfig{Provider: "groq", GroqKey: "gsk", Model: "llama3-70b-8192", OpenAIModel: "gpt-3.5-turbo-0125"}}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing provider key", func(t *testing.T) {
		cfg := base()
		cfg.LLM.GroqKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrMissingCredentials))
	})

	t.Run("summary provider needs its own key", func(t *testing.T) {
		cfg := base()
		cfg.LLM.SummaryProvider = "openai"
		assert.True(t, errors.Is(cfg.Validate(), errors.ErrMissingCredentials))

		cfg.LLM.OpenAIKey = "sk"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := base()
		cfg.LLM.Provider = "claude"
		var verr *errors.ValidationError
		require.True(t, errors.As(cfg.Validate(), &verr))
		assert.Equal(t, "LLM_PROVIDER", verr.Field)
	})
}

func TestModelFor(t *testing.T) {
	cfg := LLMConfig{Provider: "groq", Model: "llama3-70b-8192", OpenAIModel: "gpt-3.5-turbo-0125"}
	assert.Equal(t, "llama3-70b-8192", cfg.ModelFor("groq"))
	assert.Equal(t, "gpt-3.5-turbo-0125", cfg.ModelFor("openai"))

	cfg.Provider = "openai"
	cfg.Model = "gpt-4o-mini"
	assert.Equal(t, "gpt-4o-mini", cfg.ModelFor("openai"))
}
