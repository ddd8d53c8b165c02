package agents

// AgentType enumerates the analyst roles of the crew.
type AgentType string

const (
	AgentFinancialAnalyst   AgentType = "financial_analyst"
	AgentResearchAnalyst    AgentType = "research_analyst"
	AgentInvestmentAdvisor  AgentType = "investment_advisor"
	AgentChartCreator       AgentType = "chart_creator"
	AgentMarkdownWriter     AgentType = "markdown_writer"
	AgentInteractiveAnalyst AgentType = "interactive_analyst"
)

// AllAgentTypes lists every role in roster order.
func AllAgentTypes() []AgentType {
	return []AgentType{
		AgentFinancialAnalyst,
		AgentResearchAnalyst,
		AgentInvestmentAdvisor,
		AgentChartCreator,
		AgentMarkdownWriter,
		AgentInteractiveAnalyst,
	}
}

func (t AgentType) String() string { return string(t) }
