package bootstrap

import (
	"context"
	"sync"

	"stockcrew/internal/adapters/adk"
	"stockcrew/internal/adapters/ai"
	"stockcrew/internal/adapters/config"
	"stockcrew/internal/adapters/kafka"
	pgclient "stockcrew/internal/adapters/postgres"
	redisclient "stockcrew/internal/adapters/redis"
	"stockcrew/internal/agents"
	"stockcrew/internal/api"
	"stockcrew/internal/api/health"
	"stockcrew/internal/domain/analysis"
	"stockcrew/internal/events"
	runsvc "stockcrew/internal/services/analysis"
	"stockcrew/internal/services/resultlog"
	"stockcrew/internal/tools"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
	"stockcrew/pkg/templates"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer, each optional
	PG            *pgclient.Client
	Redis         *redisclient.Client
	KafkaProducer *kafka.Producer

	Adapters *Adapters
	Business *Business

	// Pipeline
	Repository analysis.Repository
	Publisher  events.Publisher
	Events     *events.Broadcaster
	Gate       *runsvc.Gate
	Pipeline   *runsvc.Service

	// Application Layer, only for the web front end
	HTTPServer    *api.Server
	HealthHandler *health.Handler

	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Adapters groups the model and data-source adapters
type Adapters struct {
	Providers *ai.ProviderRegistry
	Model     *adk.ModelAdapter
	Toolkit   *tools.Toolkit
}

// Business groups the agent layer
type Business struct {
	ToolRegistry  *tools.Registry
	AgentFactory  *agents.Factory
	AgentRegistry *agents.Registry
	Executor      *agents.Executor
	ResultLog     *resultlog.Writer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Adapters:  &Adapters{},
		Business:  &Business{},
		Events:    events.NewBroadcaster(),
		Gate:      runsvc.NewGate(),
		Lifecycle: NewLifecycle(),
		WG:        &sync.WaitGroup{},
		Context:   ctx,
		Cancel:    cancel,
	}
}

// Init initializes everything the pipeline needs, in order. The HTTP layer
// is separate, see InitHTTP.
func (c *Container) Init() error {
	phases := []struct {
		name string
		fn   func() error
	}{
		{"config", c.InitConfig},
		{"infrastructure", c.InitInfrastructure},
		{"adapters", c.InitAdapters},
		{"business", c.InitBusiness},
		{"pipeline", c.InitPipeline},
	}
	for _, p := range phases {
		if err := p.fn(); err != nil {
			return errors.Wrapf(err, "init %s", p.name)
		}
	}
	return nil
}

// Start serves the web front end in the background. A fatal HTTP error
// cancels the container context.
func (c *Container) Start() error {
	if c.HTTPServer == nil {
		return errors.Wrap(errors.ErrInvalidInput, "http server not initialized")
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel()
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.HTTPServer,
		c.Pipeline,
		c.KafkaProducer,
		c.PG,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}

// GetMetrics returns counts for the startup log
func (c *Container) GetMetrics() map[string]interface{} {
	out := map[string]interface{}{}
	if c.Business.ToolRegistry != nil {
		out["tools"] = len(c.Business.ToolRegistry.List())
	}
	if c.Business.AgentRegistry != nil {
		out["agents"] = len(c.Business.AgentRegistry.List())
	}
	return out
}

// TemplateRegistry returns the global template registry
func (c *Container) TemplateRegistry() *templates.Registry {
	return templates.Get()
}
