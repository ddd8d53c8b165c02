package agents

// AgentConfig captures runtime settings for an agent instance.
type AgentConfig struct {
	Type AgentType
	// Name is the engine identifier; it must be a valid identifier.
	Name  string
	Role  string
	Tools []string

	GoalTemplate      string
	BackstoryTemplate string

	// AllowDelegation is carried for parity with the crew roster; every
	// role currently runs without delegation.
	AllowDelegation bool
}

func roleConfig(t AgentType, name, role string) AgentConfig {
	return AgentConfig{
		Type:              t,
		Name:              name,
		Role:              role,
		Tools:             AgentToolMap[t],
		GoalTemplate:      "agents/" + string(t) + "/goal",
		BackstoryTemplate: "agents/" + string(t) + "/backstory",
	}
}

// DefaultAgentConfigs is the crew roster.
var DefaultAgentConfigs = map[AgentType]AgentConfig{
	AgentFinancialAnalyst:   roleConfig(AgentFinancialAnalyst, "FinancialAnalyst", "The Best Financial Analyst"),
	AgentResearchAnalyst:    roleConfig(AgentResearchAnalyst, "ResearchAnalyst", "Staff Research Analyst"),
	AgentInvestmentAdvisor:  roleConfig(AgentInvestmentAdvisor, "InvestmentAdvisor", "Private Investment Advisor"),
	AgentChartCreator:       roleConfig(AgentChartCreator, "ChartCreator", "Chart Creator"),
	AgentMarkdownWriter:     roleConfig(AgentMarkdownWriter, "MarkdownWriter", "Data Report Creator"),
	AgentInteractiveAnalyst: roleConfig(AgentInteractiveAnalyst, "InteractiveAnalyst", "Interactive Stock Analyst"),
}
