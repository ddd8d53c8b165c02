package callbacks

import (
	"context"
	"time"

	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/tool"

	"stockcrew/internal/tools"
	"stockcrew/pkg/logger"
)

const previewLimit = 280

// ToolEvent describes one completed tool call.
type ToolEvent struct {
	RunID   string
	Stage   string
	Agent   string
	Tool    string
	Args    map[string]any
	Preview string
	Failed  bool
	At      time.Time
}

// ToolObserver receives tool events, for example to stream them to the UI.
type ToolObserver func(ctx context.Context, ev ToolEvent)

// AuditLogAfterToolCallback logs all tool executions.
func AuditLogAfterToolCallback() llmagent.AfterToolCallback {
	return func(ctx tool.Context, t tool.Tool, args, result map[string]any, err error) (map[string]any, error) {
		meta, _ := tools.MetadataFromContext(ctx)
		log := logger.Get().With(
			"component", "tool_audit",
			"tool", t.Name(),
			"agent", ctx.AgentName(),
			"run_id", meta.RunID,
		)

		if err != nil {
			log.Errorw("Tool failed", "error", err)
		} else {
			log.Infow("Tool executed", "args", args)
		}

		return result, err
	}
}

// EventAfterToolCallback forwards every tool call to observe.
func EventAfterToolCallback(observe ToolObserver) llmagent.AfterToolCallback {
	return func(ctx tool.Context, t tool.Tool, args, result map[string]any, err error) (map[string]any, error) {
		if observe == nil {
			return result, err
		}

		meta, _ := tools.MetadataFromContext(ctx)
		ev := ToolEvent{
			RunID:  meta.RunID,
			Stage:  meta.Stage,
			Agent:  ctx.AgentName(),
			Tool:   t.Name(),
			Args:   args,
			Failed: err != nil,
			At:     time.Now().UTC(),
		}
		if err != nil {
			ev.Preview = err.Error()
		} else if text, ok := result["result"].(string); ok {
			ev.Preview = Preview(text)
		}

		observe(ctx, ev)
		return result, err
	}
}

// Preview shortens tool output for logs and UI events.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}
