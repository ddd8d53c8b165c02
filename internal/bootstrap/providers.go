package bootstrap

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"stockcrew/internal/adapters/adk"
	"stockcrew/internal/adapters/ai"
	"stockcrew/internal/adapters/charts"
	"stockcrew/internal/adapters/config"
	"stockcrew/internal/adapters/edgar"
	"stockcrew/internal/adapters/embeddings"
	errnoop "stockcrew/internal/adapters/errors/noop"
	"stockcrew/internal/adapters/errors/sentry"
	"stockcrew/internal/adapters/kafka"
	pgclient "stockcrew/internal/adapters/postgres"
	redisclient "stockcrew/internal/adapters/redis"
	"stockcrew/internal/adapters/scraper"
	"stockcrew/internal/adapters/serper"
	"stockcrew/internal/adapters/yahoo"
	"stockcrew/internal/agents"
	"stockcrew/internal/agents/callbacks"
	"stockcrew/internal/api"
	"stockcrew/internal/api/health"
	"stockcrew/internal/events"
	"stockcrew/internal/metrics"
	"stockcrew/internal/repository/memory"
	pgrepo "stockcrew/internal/repository/postgres"
	runsvc "stockcrew/internal/services/analysis"
	"stockcrew/internal/services/resultlog"
	"stockcrew/internal/tools"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

const connectTimeout = 10 * time.Second

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// InitConfig loads and validates configuration and initializes logging
func (c *Container) InitConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return c.UseConfig(cfg)
}

// UseConfig installs an already loaded configuration. Commands that do not
// run the pipeline call it directly and skip validation.
func (c *Container) UseConfig(cfg *config.Config) error {
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return errors.Wrap(err, "init logger")
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()
	return nil
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// InitInfrastructure connects the optional stores and the event bus
func (c *Container) InitInfrastructure() error {
	ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
	defer cancel()

	var err error
	if c.Config.Postgres.Enabled {
		c.Log.Info("Connecting to PostgreSQL...")
		if c.PG, err = pgclient.NewClient(ctx, c.Config.Postgres); err != nil {
			return errors.Wrap(err, "connect postgres")
		}
		if err := c.PG.ApplySchema(ctx, pgrepo.AnalysisSchema...); err != nil {
			return errors.Wrap(err, "apply schema")
		}
		c.Log.Info("✓ PostgreSQL connected")
	}

	if c.Config.Redis.Enabled {
		c.Log.Info("Connecting to Redis...")
		if c.Redis, err = redisclient.NewClient(ctx, c.Config.Redis, c.Config.App.Name); err != nil {
			return errors.Wrap(err, "connect redis")
		}
		c.Log.Info("✓ Redis connected")
	}

	if c.Config.Kafka.Enabled {
		c.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers: c.Config.Kafka.Brokers,
			Topic:   c.Config.Kafka.Topic,
		})
		c.Log.Infow("✓ Kafka producer ready", "topic", c.Config.Kafka.Topic)
	}

	c.Publisher = c.publisher()
	return nil
}

// ========================================
// Phase 3: External Adapters
// ========================================

// InitAdapters builds the chat model and the data sources behind the tools
func (c *Container) InitAdapters() error {
	cfg := c.Config

	providers, err := ai.BuildRegistry(cfg.LLM)
	if err != nil {
		return err
	}
	c.Adapters.Providers = providers

	agentProvider, err := providers.Get(ai.NormalizeProviderName(cfg.LLM.Provider))
	if err != nil {
		return err
	}
	c.Adapters.Model = adk.NewModelAdapter(agentProvider, cfg.LLM.ModelFor(cfg.LLM.Provider), adk.ModelOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	summaryName := cfg.LLM.SummaryProviderName()
	summaryProvider, err := providers.Get(ai.NormalizeProviderName(summaryName))
	if err != nil {
		return err
	}
	summarizer := scraper.NewSummarizer(summaryProvider, cfg.LLM.ModelFor(summaryName), cfg.LLM.Temperature, cfg.Scraper.ChunkSize)

	ranker, err := provideRanker(cfg, c.Log)
	if err != nil {
		return err
	}

	filings := edgar.NewClient(edgar.Options{
		UserAgent:   cfg.Filings.UserAgent,
		BaseURL:     cfg.Filings.BaseURL,
		DataBaseURL: cfg.Filings.DataBaseURL,
		Timeout:     cfg.Tools.Timeout,
	})

	toolkit, err := tools.NewToolkit(tools.ToolkitDeps{
		Search:        serper.NewClient(cfg.Search.SerperKey, cfg.Search.SerperBaseURL),
		Market:        yahoo.NewClient(yahoo.Options{BaseURL: cfg.Search.YahooBaseURL, Timeout: cfg.Tools.Timeout}),
		Scraper:       scraper.New(provideFetcher(cfg), summarizer),
		Filings:       edgar.NewSearcher(filings, ranker, cfg.Filings.Passages),
		Charts:        charts.NewRenderer(cfg.Workspace.WorkDir),
		WorkDir:       cfg.Workspace.WorkDir,
		SearchResults: cfg.Search.ResultCount,
	})
	if err != nil {
		return err
	}
	c.Adapters.Toolkit = toolkit

	c.Log.Infow("✓ Adapters initialized",
		"providers", providers.Names(),
		"agent_model", c.Adapters.Model.Name(),
		"summary_provider", summaryName,
		"headless", cfg.Scraper.Headless,
	)
	return nil
}

// ========================================
// Phase 4: Business Logic
// ========================================

// InitBusiness registers the tools and builds the agent roster
func (c *Container) InitBusiness() error {
	mw := tools.MiddlewareConfig{
		Timeout:       c.Config.Tools.Timeout,
		RetryAttempts: c.Config.Tools.RetryAttempts,
		RetryBackoff:  c.Config.Tools.RetryBackoff,
		CacheTTL:      c.Config.Tools.CacheTTL,
	}
	if c.Redis != nil {
		mw.Cache = c.Redis
	}

	c.Business.ToolRegistry = tools.NewRegistry()
	if err := tools.RegisterAll(c.Business.ToolRegistry, c.Adapters.Toolkit, mw); err != nil {
		return err
	}

	factory, err := agents.NewFactory(agents.FactoryDeps{
		Model:        c.Adapters.Model,
		ToolRegistry: c.Business.ToolRegistry,
		Templates:    c.TemplateRegistry(),
		ToolObserver: toolEventObserver(c.Publisher),
	})
	if err != nil {
		return err
	}
	c.Business.AgentFactory = factory

	if c.Business.AgentRegistry, err = factory.CreateRegistry(agents.DefaultAgentConfigs); err != nil {
		return err
	}
	if c.Business.Executor, err = agents.NewExecutor(c.Business.AgentRegistry, agents.ExecutorConfig{AppName: c.Config.App.Name}); err != nil {
		return err
	}
	c.Business.ResultLog = resultlog.NewWriter(c.Config.Workspace.LogDir)

	c.Log.Infow("✓ Agents initialized", "metrics", c.GetMetrics())
	return nil
}

// ========================================
// Phase 5: Pipeline
// ========================================

// InitPipeline wires the orchestrator to storage, events and the workspace lock
func (c *Container) InitPipeline() error {
	var db *sqlx.DB
	c.Repository = memory.NewAnalysisRepository(0)
	if c.PG != nil {
		db = c.PG.DB()
		c.Repository = pgrepo.NewAnalysisRepository(db)
	}
	prometheus.MustRegister(metrics.NewWorkspaceCollector(c.Log, db, c.Config.Workspace.WorkDir))

	deps := runsvc.Deps{
		Engine:       c.Business.Executor,
		Results:      c.Business.ResultLog,
		Templates:    c.TemplateRegistry(),
		Roster:       agents.DefaultAgentConfigs,
		Repository:   c.Repository,
		Publisher:    c.Publisher,
		Tracker:      c.ErrorTracker,
		WorkDir:      c.Config.Workspace.WorkDir,
		StageTimeout: c.Config.Pipeline.StageTimeout,
		CleanCharts:  c.Config.Pipeline.CleanCharts,
	}
	if c.Redis != nil {
		deps.Locker = runsvc.NewRedisLocker(c.Redis)
	}

	svc, err := runsvc.NewService(deps)
	if err != nil {
		return err
	}
	c.Pipeline = svc
	return nil
}

// ========================================
// Phase 6: Application Layer
// ========================================

// InitHTTP builds the web front end
func (c *Container) InitHTTP() error {
	if c.Pipeline == nil {
		return errors.Wrap(errors.ErrInvalidInput, "pipeline not initialized")
	}

	checks := map[string]health.Checker{}
	if c.PG != nil {
		checks["postgres"] = c.PG
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	c.HealthHandler = health.New(c.Log, c.Config.App.Name, c.Config.App.Version, checks)

	c.HTTPServer = api.NewServer(api.ServerConfig{
		Addr:        c.Config.HTTP.Addr,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
		WorkDir:     c.Config.Workspace.WorkDir,
	}, api.Deps{
		Pipeline: c.Pipeline,
		Gate:     c.Gate,
		Events:   c.Events,
		Health:   c.HealthHandler,
	}, c.Log)
	return nil
}

// publisher fans pipeline events out to the UI and, when enabled, Kafka.
func (c *Container) publisher() events.Publisher {
	sinks := []events.Publisher{c.Events}
	if c.KafkaProducer != nil {
		sinks = append(sinks, events.NewKafkaPublisher(c.KafkaProducer, c.Config.Kafka.Topic))
	}
	return events.NewFanout(sinks...)
}

func toolEventObserver(pub events.Publisher) callbacks.ToolObserver {
	return func(ctx context.Context, te callbacks.ToolEvent) {
		if te.RunID == "" {
			return
		}
		ev := events.New(events.TypeToolCalled, te.RunID)
		ev.Stage = te.Stage
		ev.Agent = te.Agent
		ev.Tool = te.Tool
		ev.Message = te.Preview
		ev.At = te.At
		_ = pub.Publish(context.WithoutCancel(ctx), ev)
	}
}

// provideErrorTracker initializes error tracking (Sentry or no-op)
func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func provideFetcher(cfg *config.Config) scraper.Fetcher {
	if cfg.Scraper.Headless {
		return scraper.NewBrowserFetcher(cfg.Scraper.UserAgent)
	}
	return scraper.NewHTTPFetcher(cfg.Scraper.UserAgent, cfg.Tools.Timeout)
}

// provideRanker picks embedding ranking for filing passages when it is
// enabled and an OpenAI key exists, and BM25 otherwise.
func provideRanker(cfg *config.Config, log *logger.Logger) (edgar.Ranker, error) {
	if !cfg.Filings.EmbeddingRanking {
		return edgar.LexicalRanker{}, nil
	}
	if cfg.LLM.OpenAIKey == "" {
		log.Warn("SEC_EMBEDDING_RANKING needs OPENAI_API_KEY, falling back to lexical ranking")
		return edgar.LexicalRanker{}, nil
	}

	provider, err := embeddings.NewOpenAIProvider(embeddings.OpenAIOptions{
		APIKey:  cfg.LLM.OpenAIKey,
		Model:   cfg.Filings.EmbeddingModel,
		Timeout: cfg.Tools.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return edgar.EmbeddingRanker{Provider: provider}, nil
}
