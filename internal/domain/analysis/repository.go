package analysis

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists finished runs.
type Repository interface {
	Save(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]Run, error)
}
