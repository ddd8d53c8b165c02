package callbacks

import (
	"google.golang.org/adk/agent"
	"google.golang.org/genai"

	"stockcrew/internal/tools"
	"stockcrew/pkg/logger"
)

// LoggingBeforeAgentCallback logs the start of an agent turn.
func LoggingBeforeAgentCallback() agent.BeforeAgentCallback {
	return func(ctx agent.CallbackContext) (*genai.Content, error) {
		meta, _ := tools.MetadataFromContext(ctx)
		logger.Get().Infow("Agent started",
			"agent", ctx.AgentName(),
			"session", ctx.SessionID(),
			"run_id", meta.RunID,
			"stage", meta.Stage,
		)
		return nil, nil
	}
}

// LoggingAfterAgentCallback logs the end of an agent turn.
func LoggingAfterAgentCallback() agent.AfterAgentCallback {
	return func(ctx agent.CallbackContext) (*genai.Content, error) {
		meta, _ := tools.MetadataFromContext(ctx)
		logger.Get().Infow("Agent finished",
			"agent", ctx.AgentName(),
			"session", ctx.SessionID(),
			"run_id", meta.RunID,
			"stage", meta.Stage,
		)
		return nil, nil
	}
}
