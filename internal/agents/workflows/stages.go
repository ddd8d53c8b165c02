package workflows

import (
	"stockcrew/internal/agents"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/templates"
)

// StageName identifies one pipeline stage.
type StageName string

const (
	StageInteractiveAnalysis StageName = "interactive_analysis"
	StageResearch            StageName = "research"
	StageFinancialAnalysis   StageName = "financial_analysis"
	StageFilingsAnalysis     StageName = "filings_analysis"
	StageRecommendation      StageName = "recommendation"
	StageChartCreation       StageName = "chart_creation"
	StageMarkdownReport      StageName = "markdown_report"
)

func (s StageName) String() string { return string(s) }

// Stage binds a task template to the role that performs it.
type Stage struct {
	Name     StageName
	Agent    agents.AgentType
	Template string
	// RequiresConfirmation stages wait for operator approval before they start.
	RequiresConfirmation bool
}

// PromptInput carries the per-run values a task template may use.
type PromptInput struct {
	Subject  string
	Feedback string
}

// Questions the financial analysis must answer.
var Questions = []string{
	"Is the business behind the stock good?",
	"If its a good business, why is it good? What is its Moat?",
	"Can it remain a good business in future too?",
	"Is it run by competent and honest people?",
	"Is it available at a fair price?",
}

// Headings the interactive analysis must cover.
var Headings = []string{
	"P/E Ratio",
	"Forward P/E",
	"PEG Ratio",
	"Price/Book",
	"Dividend Yield",
	"Return on Equity",
	"Debt to Equity",
}

// Sections the markdown report must include.
var Sections = []string{
	"A title for the report",
	"Sections for each analysis (revenue, profit margins, stock price trends)",
	"Markdown syntax to embed the charts (e.g., ![](chart_name.png))",
	"A summary of the key findings",
}

var stockAnalysis = []Stage{
	{Name: StageInteractiveAnalysis, Agent: agents.AgentInteractiveAnalyst, Template: "tasks/interactive_analysis"},
	{Name: StageResearch, Agent: agents.AgentResearchAnalyst, Template: "tasks/research"},
	{Name: StageFinancialAnalysis, Agent: agents.AgentFinancialAnalyst, Template: "tasks/financial_analysis"},
	{Name: StageFilingsAnalysis, Agent: agents.AgentFinancialAnalyst, Template: "tasks/filings_analysis"},
	{Name: StageRecommendation, Agent: agents.AgentInvestmentAdvisor, Template: "tasks/recommendation"},
	{Name: StageChartCreation, Agent: agents.AgentChartCreator, Template: "tasks/chart_creation"},
	{Name: StageMarkdownReport, Agent: agents.AgentMarkdownWriter, Template: "tasks/markdown_report", RequiresConfirmation: true},
}

// StockAnalysis returns the stage list in execution order.
func StockAnalysis() []Stage {
	out := make([]Stage, len(stockAnalysis))
	copy(out, stockAnalysis)
	return out
}

// Lookup finds a stage by name.
func Lookup(name StageName) (Stage, error) {
	for _, s := range stockAnalysis {
		if s.Name == name {
			return s, nil
		}
	}
	return Stage{}, errors.Wrapf(errors.ErrUnknownStage, "%s", name)
}

// Prompt renders the stage's task text.
func (s Stage) Prompt(reg *templates.Registry, in PromptInput) (string, error) {
	if reg == nil {
		reg = templates.Get()
	}
	text, err := reg.Render(s.Template, map[string]any{
		"Subject":   in.Subject,
		"Feedback":  in.Feedback,
		"Questions": Questions,
		"Headings":  Headings,
		"Sections":  Sections,
	})
	if err != nil {
		return "", errors.Wrapf(err, "render %s prompt", s.Name)
	}
	return text, nil
}

// Validate checks that every stage is bound to a known role and that stage
// names are unique.
func Validate(stages []Stage, roster map[agents.AgentType]agents.AgentConfig) error {
	seen := make(map[StageName]bool, len(stages))
	for _, s := range stages {
		if seen[s.Name] {
			return errors.Wrapf(errors.ErrInvalidInput, "duplicate stage %s", s.Name)
		}
		seen[s.Name] = true
		if _, ok := roster[s.Agent]; !ok {
			return errors.Wrapf(errors.ErrInvalidInput, "stage %s bound to unknown agent %s", s.Name, s.Agent)
		}
	}
	return nil
}
