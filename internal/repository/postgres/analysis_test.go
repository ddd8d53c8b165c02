package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/internal/domain/analysis"
	"stockcrew/internal/testsupport"
	"stockcrew/pkg/errors"
)

func newAnalysisRepo(t *testing.T) *AnalysisRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	ctx := context.Background()
	for _, stmt := range AnalysisSchema {
		_, err := testDB.Tx().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return NewAnalysisRepository(testDB.Tx())
}

func TestAnalysisRepository_SaveAndGet(t *testing.T) {
	repo := newAnalysisRepo(t)
	ctx := context.Background()

	run := analysis.NewRun("Apple")
	require.NoError(t, run.Transition(analysis.StatusRunning))
	run.CurrentStage = "research"
	run.Stages = []analysis.StageResult{
		{Position: 0, Stage: "interactive_analysis", Agent: "interactive_analyst", Output: "ratios", StartedAt: run.CreatedAt},
		{Position: 1, Stage: "research", Agent: "research_analyst", Output: "news", ToolCalls: 3, StartedAt: run.CreatedAt},
	}
	require.NoError(t, repo.Save(ctx, run))

	require.NoError(t, run.Transition(analysis.StatusFailed))
	run.Error = "stage research failed"
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple", got.Subject)
	assert.Equal(t, analysis.StatusFailed, got.Status)
	assert.Equal(t, "stage research failed", got.Error)
	assert.NotNil(t, got.FinishedAt)
	require.Len(t, got.Stages, 2)
	assert.Equal(t, "news", got.Stages[1].Output)
	assert.Equal(t, 3, got.Stages[1].ToolCalls)

	recent, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)
}

func TestAnalysisRepository_NotFound(t *testing.T) {
	repo := newAnalysisRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
