package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"stockcrew/internal/domain/analysis"
	"stockcrew/internal/metrics"
	"stockcrew/pkg/errors"
)

// AnalysisSchema creates the run tables when missing.
var AnalysisSchema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		id            UUID PRIMARY KEY,
		subject       TEXT NOT NULL,
		status        TEXT NOT NULL,
		current_stage TEXT NOT NULL DEFAULT '',
		result        TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		feedback      TEXT NOT NULL DEFAULT '',
		log_file      TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS analysis_stage_results (
		run_id        UUID NOT NULL REFERENCES analysis_runs (id) ON DELETE CASCADE,
		position      INT NOT NULL,
		stage         TEXT NOT NULL,
		agent         TEXT NOT NULL,
		output        TEXT NOT NULL,
		tool_calls    INT NOT NULL DEFAULT 0,
		input_tokens  INT NOT NULL DEFAULT 0,
		output_tokens INT NOT NULL DEFAULT 0,
		duration_ms   BIGINT NOT NULL DEFAULT 0,
		started_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

// Compile-time check
var _ analysis.Repository = (*AnalysisRepository)(nil)

// AnalysisRepository implements analysis.Repository using sqlx
type AnalysisRepository struct {
	db DBTX
}

// NewAnalysisRepository creates a new analysis run repository over a
// connection or a transaction
func NewAnalysisRepository(db DBTX) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save upserts the run and replaces its stage results in one transaction
func (r *AnalysisRepository) Save(ctx context.Context, run *analysis.Run) (err error) {
	defer observe("save_run", time.Now(), &err)

	return inTx(ctx, r.db, func(tx DBTX) error {
		if err := saveRun(ctx, tx, run); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_stage_results WHERE run_id = $1`, run.ID); err != nil {
			return errors.Wrap(err, "clear stage results")
		}

		for _, st := range run.Stages {
			st.RunID = run.ID
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO analysis_stage_results (
					run_id, position, stage, agent, output,
					tool_calls, input_tokens, output_tokens, duration_ms, started_at
				) VALUES (
					:run_id, :position, :stage, :agent, :output,
					:tool_calls, :input_tokens, :output_tokens, :duration_ms, :started_at
				)`, st)
			if err != nil {
				return errors.Wrapf(err, "insert stage %s", st.Stage)
			}
		}
		return nil
	})
}

func saveRun(ctx context.Context, tx DBTX, run *analysis.Run) error {
	query := `
		INSERT INTO analysis_runs (
			id, subject, status, current_stage, result, error,
			feedback, log_file, created_at, finished_at
		) VALUES (
			:id, :subject, :status, :current_stage, :result, :error,
			:feedback, :log_file, :created_at, :finished_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_stage = EXCLUDED.current_stage,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			feedback = EXCLUDED.feedback,
			log_file = EXCLUDED.log_file,
			finished_at = EXCLUDED.finished_at`

	if _, err := tx.NamedExecContext(ctx, query, run); err != nil {
		return errors.Wrap(err, "upsert run")
	}
	return nil
}

// GetByID retrieves a run and its stage results
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (_ *analysis.Run, err error) {
	defer observe("get_run", time.Now(), &err)

	var run analysis.Run
	err = r.db.GetContext(ctx, &run, `SELECT * FROM analysis_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get run")
	}

	err = r.db.SelectContext(ctx, &run.Stages, `
		SELECT * FROM analysis_stage_results
		WHERE run_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrap(err, "get stage results")
	}

	return &run, nil
}

// ListRecent returns the newest runs without their stage results
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) (_ []analysis.Run, err error) {
	defer observe("list_runs", time.Now(), &err)

	if limit <= 0 {
		limit = 20
	}

	var runs []analysis.Run
	err = r.db.SelectContext(ctx, &runs, `
		SELECT * FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	return runs, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.RecordDBQuery("postgres", operation, time.Since(start), *err)
}
