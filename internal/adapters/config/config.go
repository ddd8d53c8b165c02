package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"stockcrew/pkg/errors"
)

type Config struct {
	App           AppConfig
	LLM           LLMConfig
	Search        SearchConfig
	Filings       FilingsConfig
	Scraper       ScraperConfig
	Workspace     WorkspaceConfig
	Tools         ToolsConfig
	Pipeline      PipelineConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"stockcrew"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

// LLMConfig selects the provider bound to every agent and the scrape summariser
type LLMConfig struct {
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	GroqKey         string        `envconfig:"GROQ_API_KEY"`
	Provider        string        `envconfig:"LLM_PROVIDER" default:"groq"`
	Model           string        `envconfig:"LLM_MODEL" default:"llama3-70b-8192"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo-0125"`
	SummaryProvider string        `envconfig:"SUMMARY_PROVIDER"`
	Temperature     float64       `envconfig:"LLM_TEMPERATURE" default:"0.4"`
	MaxTokens       int           `envconfig:"LLM_MAX_TOKENS" default:"4096"`
	ReqPerMinute    int           `envconfig:"LLM_REQ_PER_MINUTE" default:"30"`
	Timeout         time.Duration `envconfig:"LLM_TIMEOUT" default:"120s"`
}

// KeyFor returns the API key of the named provider
func (c LLMConfig) KeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return c.OpenAIKey
	case "groq":
		return c.GroqKey
	default:
		return ""
	}
}

// ModelFor returns the model the named provider should serve
func (c LLMConfig) ModelFor(provider string) string {
	if strings.EqualFold(provider, c.Provider) {
		return c.Model
	}
	if strings.EqualFold(provider, "openai") {
		return c.OpenAIModel
	}
	return c.Model
}

// SummaryProviderName falls back to the agent provider when unset
func (c LLMConfig) SummaryProviderName() string {
	if c.SummaryProvider != "" {
		return c.SummaryProvider
	}
	return c.Provider
}

type SearchConfig struct {
	SerperKey     string `envconfig:"SERPER_API_KEY"`
	SerperBaseURL string `envconfig:"SERPER_BASE_URL" default:"https://google.serper.dev"`
	ResultCount   int    `envconfig:"SEARCH_RESULT_COUNT" default:"4"`
	YahooBaseURL  string `envconfig:"YAHOO_BASE_URL" default:"https://query2.finance.yahoo.com"`
}

type FilingsConfig struct {
	UserAgent   string `envconfig:"SEC_USER_AGENT" default:"stockcrew research contact@example.com"`
	BaseURL     string `envconfig:"SEC_BASE_URL" default:"https://www.sec.gov"`
	DataBaseURL string `envconfig:"SEC_DATA_BASE_URL" default:"https://data.sec.gov"`
	Passages    int    `envconfig:"SEC_PASSAGES" default:"5"`
	// EmbeddingRanking ranks filing passages with OpenAI embeddings when an OpenAI key exists
	EmbeddingRanking bool   `envconfig:"SEC_EMBEDDING_RANKING" default:"false"`
	EmbeddingModel   string `envconfig:"SEC_EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

type ScraperConfig struct {
	Headless  bool   `envconfig:"SCRAPER_HEADLESS" default:"false"`
	UserAgent string `envconfig:"SCRAPER_USER_AGENT" default:"Mozilla/5.0 (compatible; stockcrew/1.0)"`
	ChunkSize int    `envconfig:"SCRAPER_CHUNK_SIZE" default:"8000"`
}

type WorkspaceConfig struct {
	WorkDir string `envconfig:"WORK_DIR" default:"."`
	LogDir  string `envconfig:"LOG_DIR" default:"."`
}

type ToolsConfig struct {
	Timeout       time.Duration `envconfig:"TOOL_TIMEOUT" default:"60s"`
	RetryAttempts int           `envconfig:"TOOL_RETRY_ATTEMPTS" default:"1"`
	RetryBackoff  time.Duration `envconfig:"TOOL_RETRY_BACKOFF" default:"500ms"`
	CacheTTL      time.Duration `envconfig:"TOOL_CACHE_TTL" default:"15m"`
}

type PipelineConfig struct {
	StageTimeout time.Duration `envconfig:"PIPELINE_STAGE_TIMEOUT" default:"0"`
	CleanCharts  bool          `envconfig:"PIPELINE_CLEAN_CHARTS" default:"false"`
}

type HTTPConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8501"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

type PostgresConfig struct {
	Enabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"stockcrew"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"stockcrew"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"stockcrew.pipeline.events"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}

// Validate fails fast on settings the pipeline cannot run without.
// Search and market-data keys are optional: their tools report the problem to the model instead.
func (c *Config) Validate() error {
	provider := strings.ToLower(c.LLM.Provider)
	if provider != "openai" && provider != "groq" {
		return errors.NewValidationError("LLM_PROVIDER", "must be openai or groq", c.LLM.Provider)
	}
	if c.LLM.KeyFor(provider) == "" {
		return errors.Wrapf(errors.ErrMissingCredentials, "%s API key is not set", provider)
	}
	if summary := c.LLM.SummaryProviderName(); c.LLM.KeyFor(summary) == "" {
		return errors.Wrapf(errors.ErrMissingCredentials, "summary provider %s API key is not set", summary)
	}
	if c.Postgres.Enabled && c.Postgres.Password == "" {
		return errors.NewValidationError("POSTGRES_PASSWORD", "required when POSTGRES_ENABLED", "")
	}
	if c.ErrorTracking.Enabled && c.ErrorTracking.SentryDSN == "" {
		return errors.NewValidationError("SENTRY_DSN", "required when ERROR_TRACKING_ENABLED", "")
	}
	return nil
}
