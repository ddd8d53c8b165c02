package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/internal/agents"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/templates"
)

func TestStockAnalysisOrder(t *testing.T) {
	var names []StageName
	for _, s := range StockAnalysis() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []StageName{
		StageInteractiveAnalysis,
		StageResearch,
		StageFinancialAnalysis,
		StageFilingsAnalysis,
		StageRecommendation,
		StageChartCreation,
		StageMarkdownReport,
	}, names)

	for _, s := range StockAnalysis() {
		assert.Equal(t, s.Name == StageMarkdownReport, s.RequiresConfirmation, s.Name)
	}
	require.NoError(t, Validate(StockAnalysis(), agents.DefaultAgentConfigs))
}

func TestPromptsEndWithTip(t *testing.T) {
	for _, s := range StockAnalysis() {
		text, err := s.Prompt(templates.Get(), PromptInput{Subject: "Tesla"})
		require.NoError(t, err, s.Name)
		assert.Contains(t, text, templates.TipLine, s.Name)
		if s.Name == StageResearch {
			assert.Contains(t, text, "Selected company by the customer: Tesla")
		} else {
			assert.NotContains(t, text, "Tesla", s.Name)
		}
	}
}

func TestPromptData(t *testing.T) {
	fin, err := Lookup(StageFinancialAnalysis)
	require.NoError(t, err)
	text, err := fin.Prompt(nil, PromptInput{})
	require.NoError(t, err)
	assert.Contains(t, text, "5. Is it available at a fair price?")

	interactive, err := Lookup(StageInteractiveAnalysis)
	require.NoError(t, err)
	text, err = interactive.Prompt(nil, PromptInput{})
	require.NoError(t, err)
	assert.Contains(t, text, "- Debt to Equity")
}

func TestReportFeedback(t *testing.T) {
	report, err := Lookup(StageMarkdownReport)
	require.NoError(t, err)

	plain, err := report.Prompt(nil, PromptInput{Subject: "AAPL"})
	require.NoError(t, err)
	assert.NotContains(t, plain, "Human feedback")
	assert.Contains(t, plain, "3. Markdown syntax to embed the charts")

	withFeedback, err := report.Prompt(nil, PromptInput{Feedback: "keep it short"})
	require.NoError(t, err)
	assert.Contains(t, withFeedback, "Human feedback: keep it short")
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("portfolio_review")
	assert.True(t, errors.Is(err, errors.ErrUnknownStage))
}

func TestValidate(t *testing.T) {
	dup := []Stage{
		{Name: StageResearch, Agent: agents.AgentResearchAnalyst},
		{Name: StageResearch, Agent: agents.AgentResearchAnalyst},
	}
	assert.Error(t, Validate(dup, agents.DefaultAgentConfigs))

	unknown := []Stage{{Name: StageResearch, Agent: "trader"}}
	assert.Error(t, Validate(unknown, agents.DefaultAgentConfigs))
}
