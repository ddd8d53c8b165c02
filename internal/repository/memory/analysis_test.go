package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/internal/domain/analysis"
	"stockcrew/pkg/errors"
)

func TestAnalysisRepository(t *testing.T) {
	repo := NewAnalysisRepository(2)
	ctx := context.Background()

	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	var runs []*analysis.Run
	for i, subject := range []string{"AAPL", "MSFT", "NVDA"} {
		run := analysis.NewRun(subject)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		run.Stages = []analysis.StageResult{{Stage: "research"}}
		require.NoError(t, repo.Save(ctx, run))
		runs = append(runs, run)
	}

	_, err := repo.GetByID(ctx, runs[0].ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "oldest run evicted")

	got, err := repo.GetByID(ctx, runs[2].ID)
	require.NoError(t, err)
	assert.Len(t, got.Stages, 1)

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "NVDA", recent[0].Subject)
	assert.Empty(t, recent[0].Stages)
}
