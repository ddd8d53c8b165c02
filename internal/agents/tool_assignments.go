package agents

import (
	"stockcrew/internal/tools"
	"stockcrew/pkg/errors"
)

// AgentToolMap defines which tools each role may call.
var AgentToolMap = map[AgentType][]string{
	AgentFinancialAnalyst: {
		tools.ToolScrapeAndSummarize,
		tools.ToolSearchInternet,
		tools.ToolCalculate,
		tools.ToolSearch10Q,
		tools.ToolSearch10K,
		tools.ToolYahooFinanceNews,
		tools.ToolGetFinancialRatios,
	},
	AgentResearchAnalyst: {
		tools.ToolScrapeAndSummarize,
		tools.ToolSearchInternet,
		tools.ToolSearchNews,
		tools.ToolYahooFinanceNews,
		tools.ToolSearch10Q,
		tools.ToolSearch10K,
		tools.ToolGetCompanyInfo,
	},
	AgentInvestmentAdvisor: {
		tools.ToolScrapeAndSummarize,
		tools.ToolSearchInternet,
		tools.ToolSearchNews,
		tools.ToolCalculate,
		tools.ToolYahooFinanceNews,
		tools.ToolGetPriceIndicators,
	},
	AgentChartCreator: {
		tools.ToolCreateChart,
		tools.ToolGetHistoricalPrice,
	},
	AgentMarkdownWriter: {
		tools.ToolWriteMarkdown,
	},
	AgentInteractiveAnalyst: {
		tools.ToolGetStockInfo,
		tools.ToolGetHistoricalPrice,
		tools.ToolGetFinancialRatios,
		tools.ToolGetCompanyInfo,
	},
}

// ToolsForAgent returns a copy of the tool names assigned to the role.
func ToolsForAgent(agentType AgentType) []string {
	names := AgentToolMap[agentType]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// HasToolAccess reports whether the role may call the tool.
func HasToolAccess(agentType AgentType, toolName string) bool {
	for _, name := range AgentToolMap[agentType] {
		if name == toolName {
			return true
		}
	}
	return false
}

// ValidateToolAccess checks that every roster entry only references
// registered tools.
func ValidateToolAccess(configs map[AgentType]AgentConfig, registry *tools.Registry) error {
	var merr errors.MultiError
	for _, t := range AllAgentTypes() {
		cfg, ok := configs[t]
		if !ok {
			continue
		}
		if _, missing, ok := registry.Resolve(cfg.Tools); !ok {
			merr.Add(errors.Wrapf(errors.ErrNotFound, "agent %s references unregistered tool %s", t, missing))
		}
	}
	return merr.ToError()
}
