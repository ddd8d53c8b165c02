package callbacks

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"

	"stockcrew/pkg/logger"
)

// ModelLoggingAfterCallback logs each model turn: how many tool calls it
// asked for and how many tokens it consumed.
func ModelLoggingAfterCallback() llmagent.AfterModelCallback {
	return func(ctx agent.CallbackContext, resp *model.LLMResponse, respErr error) (*model.LLMResponse, error) {
		log := logger.Get().With("component", "model_turn", "agent", ctx.AgentName())

		if respErr != nil {
			log.Warnw("Model call failed", "error", respErr)
			return resp, respErr
		}
		if resp == nil {
			return resp, respErr
		}

		calls := 0
		if resp.Content != nil {
			for _, p := range resp.Content.Parts {
				if p != nil && p.FunctionCall != nil {
					calls++
				}
			}
		}

		var tokens int32
		if resp.UsageMetadata != nil {
			tokens = resp.UsageMetadata.TotalTokenCount
		}

		log.Debugw("Model turn complete", "tool_calls", calls, "tokens", tokens)
		return resp, respErr
	}
}
