package analysis

import (
	"time"

	"github.com/google/uuid"

	"stockcrew/pkg/errors"
)

// Status is the lifecycle state of a pipeline run.
type Status string

const (
	StatusPending              Status = "pending"
	StatusRunning              Status = "running"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
	StatusRejected             Status = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

var transitions = map[Status][]Status{
	StatusPending:              {StatusRunning, StatusFailed},
	StatusRunning:              {StatusRunning, StatusAwaitingConfirmation, StatusCompleted, StatusFailed},
	StatusAwaitingConfirmation: {StatusRunning, StatusRejected, StatusFailed},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Run is one end-to-end pass of the stage list for a subject.
type Run struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Subject      string     `db:"subject" json:"subject"`
	Status       Status     `db:"status" json:"status"`
	CurrentStage string     `db:"current_stage" json:"current_stage,omitempty"`
	Result       string     `db:"result" json:"result,omitempty"`
	Error        string     `db:"error" json:"error,omitempty"`
	Feedback     string     `db:"feedback" json:"feedback,omitempty"`
	LogFile      string     `db:"log_file" json:"log_file,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at,omitempty"`

	Stages []StageResult `db:"-" json:"stages"`
}

// NewRun creates a pending run for subject.
func NewRun(subject string) *Run {
	return &Run{
		ID:        uuid.New(),
		Subject:   subject,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Transition moves the run to status, rejecting illegal moves.
func (r *Run) Transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return errors.Wrapf(errors.ErrInvalidInput, "run %s cannot move from %s to %s", r.ID, r.Status, to)
	}
	r.Status = to
	if to.Terminal() {
		now := time.Now().UTC()
		r.FinishedAt = &now
	}
	return nil
}

// Duration is the wall time of a finished run, or the time so far.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.CreatedAt)
	}
	return time.Since(r.CreatedAt)
}

// Clone returns a deep copy safe to hand to readers.
func (r *Run) Clone() *Run {
	cp := *r
	cp.Stages = append([]StageResult(nil), r.Stages...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

// StageResult is the artifact one stage produced.
type StageResult struct {
	RunID        uuid.UUID `db:"run_id" json:"-"`
	Position     int       `db:"position" json:"position"`
	Stage        string    `db:"stage" json:"stage"`
	Agent        string    `db:"agent" json:"agent"`
	Output       string    `db:"output" json:"output"`
	ToolCalls    int       `db:"tool_calls" json:"tool_calls"`
	InputTokens  int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens int       `db:"output_tokens" json:"output_tokens"`
	DurationMs   int64     `db:"duration_ms" json:"duration_ms"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
}
