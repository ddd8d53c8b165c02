package agents

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"

	"stockcrew/internal/agents/callbacks"
	"stockcrew/internal/tools"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
	"stockcrew/pkg/templates"
)

const instructionTemplate = "agents/instruction"

// FactoryDeps gathers external dependencies needed to instantiate agents.
type FactoryDeps struct {
	Model        adkmodel.LLM
	ToolRegistry *tools.Registry
	Templates    *templates.Registry
	// ToolObserver is optional and receives every completed tool call.
	ToolObserver callbacks.ToolObserver
}

// Factory creates configured agents and registries.
type Factory struct {
	model        adkmodel.LLM
	toolRegistry *tools.Registry
	templates    *templates.Registry
	observer     callbacks.ToolObserver
	log          *logger.Logger
}

// NewFactory builds an agent factory with required dependencies.
func NewFactory(deps FactoryDeps) (*Factory, error) {
	if deps.Model == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "model is required")
	}
	if deps.ToolRegistry == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "tool registry is required")
	}
	if deps.Templates == nil {
		deps.Templates = templates.Get()
	}

	return &Factory{
		model:        deps.Model,
		toolRegistry: deps.ToolRegistry,
		templates:    deps.Templates,
		observer:     deps.ToolObserver,
		log:          logger.Get().With("component", "agent_factory"),
	}, nil
}

// Instruction renders the system instruction for a role.
func (f *Factory) Instruction(cfg AgentConfig) (string, error) {
	goal, err := f.templates.Render(cfg.GoalTemplate, nil)
	if err != nil {
		return "", errors.Wrapf(err, "render goal for %s", cfg.Type)
	}
	backstory, err := f.templates.Render(cfg.BackstoryTemplate, nil)
	if err != nil {
		return "", errors.Wrapf(err, "render backstory for %s", cfg.Type)
	}

	return f.templates.Render(instructionTemplate, map[string]any{
		"Role":      cfg.Role,
		"Goal":      goal,
		"Backstory": backstory,
		"Tools":     cfg.Tools,
	})
}

// CreateAgent constructs a single ADK agent instance from a config.
func (f *Factory) CreateAgent(cfg AgentConfig) (agent.Agent, error) {
	agentTools, missing, ok := f.toolRegistry.Resolve(cfg.Tools)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "tool %s for agent %s", missing, cfg.Type)
	}

	instruction, err := f.Instruction(cfg)
	if err != nil {
		return nil, err
	}

	afterTool := []llmagent.AfterToolCallback{callbacks.AuditLogAfterToolCallback()}
	if f.observer != nil {
		afterTool = append(afterTool, callbacks.EventAfterToolCallback(f.observer))
	}

	ag, err := llmagent.New(llmagent.Config{
		Name:                 cfg.Name,
		Description:          cfg.Role,
		Model:                f.model,
		Instruction:          instruction,
		Tools:                agentTools,
		BeforeAgentCallbacks: []agent.BeforeAgentCallback{callbacks.LoggingBeforeAgentCallback()},
		AfterAgentCallbacks:  []agent.AfterAgentCallback{callbacks.LoggingAfterAgentCallback()},
		AfterModelCallbacks:  []llmagent.AfterModelCallback{callbacks.ModelLoggingAfterCallback()},
		AfterToolCallbacks:   afterTool,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create agent %s", cfg.Type)
	}
	return ag, nil
}

// CreateRegistry validates the roster against the tool registry and builds
// every role.
func (f *Factory) CreateRegistry(configs map[AgentType]AgentConfig) (*Registry, error) {
	if err := ValidateToolAccess(configs, f.toolRegistry); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, t := range AllAgentTypes() {
		cfg, ok := configs[t]
		if !ok {
			continue
		}
		ag, err := f.CreateAgent(cfg)
		if err != nil {
			return nil, err
		}
		reg.Register(t, ag)
	}

	f.log.Infow("Agents created", "count", len(reg.List()))
	return reg, nil
}
