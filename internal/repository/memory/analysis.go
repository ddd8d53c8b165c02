package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"stockcrew/internal/domain/analysis"
	"stockcrew/pkg/errors"
)

const defaultCapacity = 50

// Compile-time check
var _ analysis.Repository = (*AnalysisRepository)(nil)

// AnalysisRepository keeps the most recent runs in process memory. It backs
// the runs API when Postgres is disabled.
type AnalysisRepository struct {
	mu       sync.RWMutex
	runs     map[uuid.UUID]*analysis.Run
	capacity int
}

// NewAnalysisRepository creates a repository holding up to capacity runs.
func NewAnalysisRepository(capacity int) *AnalysisRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &AnalysisRepository{runs: make(map[uuid.UUID]*analysis.Run), capacity: capacity}
}

func (r *AnalysisRepository) Save(_ context.Context, run *analysis.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = run.Clone()
	if len(r.runs) > r.capacity {
		r.evictOldest()
	}
	return nil
}

func (r *AnalysisRepository) GetByID(_ context.Context, id uuid.UUID) (*analysis.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	return run.Clone(), nil
}

func (r *AnalysisRepository) ListRecent(_ context.Context, limit int) ([]analysis.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]analysis.Run, 0, len(r.runs))
	for _, run := range r.runs {
		cp := run.Clone()
		cp.Stages = nil
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AnalysisRepository) evictOldest() {
	var (
		oldest uuid.UUID
		found  bool
	)
	for id, run := range r.runs {
		if !found || run.CreatedAt.Before(r.runs[oldest].CreatedAt) {
			oldest, found = id, true
		}
	}
	delete(r.runs, oldest)
}
