package agents

import (
	"context"
	"strings"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"stockcrew/internal/tools"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

const (
	defaultAppName = "stockcrew"
	defaultUserID  = "operator"
)

// ExecutorConfig configures the shared session all agents of a run write to.
type ExecutorConfig struct {
	AppName        string
	UserID         string
	SessionService adksession.Service
}

// ExecutionOutput contains the result of one agent turn.
type ExecutionOutput struct {
	AgentType     AgentType
	Text          string
	InputTokens   int
	OutputTokens  int
	ToolCallCount int
	Duration      time.Duration
}

// TokensUsed returns prompt plus completion tokens.
func (o *ExecutionOutput) TokensUsed() int { return o.InputTokens + o.OutputTokens }

// Executor runs crew agents against one shared session per pipeline run,
// so each agent sees the work of the agents before it.
type Executor struct {
	runners  map[AgentType]*runner.Runner
	names    map[AgentType]string
	sessions adksession.Service
	appName  string
	userID   string
	log      *logger.Logger
}

// NewExecutor creates one runner per registered agent.
func NewExecutor(reg *Registry, cfg ExecutorConfig) (*Executor, error) {
	if cfg.SessionService == nil {
		cfg.SessionService = adksession.InMemoryService()
	}
	if cfg.AppName == "" {
		cfg.AppName = defaultAppName
	}
	if cfg.UserID == "" {
		cfg.UserID = defaultUserID
	}

	e := &Executor{
		runners:  make(map[AgentType]*runner.Runner),
		names:    make(map[AgentType]string),
		sessions: cfg.SessionService,
		appName:  cfg.AppName,
		userID:   cfg.UserID,
		log:      logger.Get().With("component", "agent_executor"),
	}

	for _, t := range reg.List() {
		ag, _ := reg.Get(t)
		r, err := runner.New(runner.Config{
			AppName:        cfg.AppName,
			Agent:          ag,
			SessionService: cfg.SessionService,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "create runner for %s", t)
		}
		e.runners[t] = r
		e.names[t] = ag.Name()
	}

	return e, nil
}

// StartSession opens the shared session for a run.
func (e *Executor) StartSession(ctx context.Context) (string, error) {
	resp, err := e.sessions.Create(ctx, &adksession.CreateRequest{
		AppName: e.appName,
		UserID:  e.userID,
	})
	if err != nil {
		return "", errors.Wrap(err, "create session")
	}
	return resp.Session.ID(), nil
}

// EndSession drops the run's session and its history.
func (e *Executor) EndSession(ctx context.Context, sessionID string) error {
	err := e.sessions.Delete(ctx, &adksession.DeleteRequest{
		AppName:   e.appName,
		UserID:    e.userID,
		SessionID: sessionID,
	})
	return errors.Wrap(err, "delete session")
}

// Execute sends prompt to the agent and waits for its final answer.
func (e *Executor) Execute(ctx context.Context, sessionID string, agentType AgentType, prompt string) (*ExecutionOutput, error) {
	r, ok := e.runners[agentType]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "agent %s", agentType)
	}

	meta, _ := tools.MetadataFromContext(ctx)
	meta.Agent = string(agentType)
	ctx = tools.WithInvocationMetadata(ctx, meta)

	start := time.Now()
	out := &ExecutionOutput{AgentType: agentType}
	log := e.log.With("agent", agentType, "session", sessionID, "run_id", meta.RunID)

	content := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}
	runCfg := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var final *adksession.Event
	for event, err := range r.Run(ctx, e.userID, sessionID, content, runCfg) {
		if err != nil {
			return nil, errors.Wrapf(err, "agent %s", agentType)
		}
		if event == nil || event.LLMResponse.Partial {
			continue
		}

		if event.UsageMetadata != nil {
			out.InputTokens += int(event.UsageMetadata.PromptTokenCount)
			out.OutputTokens += int(event.UsageMetadata.CandidatesTokenCount)
		}
		if event.LLMResponse.Content != nil {
			for _, part := range event.LLMResponse.Content.Parts {
				if part != nil && part.FunctionCall != nil {
					out.ToolCallCount++
					log.Debugw("Tool call", "tool", part.FunctionCall.Name)
				}
			}
		}

		if event.TurnComplete && event.IsFinalResponse() {
			final = event
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "agent %s interrupted", agentType)
	}

	out.Duration = time.Since(start)
	out.Text = finalText(final)
	if out.Text == "" {
		return nil, errors.Wrapf(errors.ErrInternal, "agent %s gave no final answer", agentType)
	}

	log.Infow("Agent execution complete",
		"duration", out.Duration,
		"tokens", out.TokensUsed(),
		"tools", out.ToolCallCount,
	)
	return out, nil
}

func finalText(ev *adksession.Event) string {
	if ev == nil || ev.LLMResponse.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range ev.LLMResponse.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
