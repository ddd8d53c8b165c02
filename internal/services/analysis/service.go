package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockcrew/internal/adapters/charts"
	"stockcrew/internal/agents"
	"stockcrew/internal/agents/workflows"
	"stockcrew/internal/domain/analysis"
	"stockcrew/internal/events"
	"stockcrew/internal/metrics"
	"stockcrew/internal/repository/memory"
	"stockcrew/internal/tools"
	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
	"stockcrew/pkg/templates"
)

const (
	// CodeStageFailed tags the error returned when a stage fails.
	CodeStageFailed = "STAGE_FAILED"

	// DefaultLockTTL is the workspace lock expiry. The lock is refreshed at a
	// third of it for as long as the run lasts, the confirmation wait included.
	DefaultLockTTL = 2 * time.Minute
)

// Deps wires the orchestrator.
type Deps struct {
	Engine    Engine
	Results   ResultLogger
	Templates *templates.Registry
	// Stages defaults to workflows.StockAnalysis().
	Stages []workflows.Stage
	// Roster defaults to agents.DefaultAgentConfigs.
	Roster map[agents.AgentType]agents.AgentConfig

	Repository analysis.Repository
	Publisher  events.Publisher
	Locker     Locker
	Tracker    errors.Tracker

	WorkDir      string
	StageTimeout time.Duration
	CleanCharts  bool
	LockTTL      time.Duration
}

// Service runs the stage list for one subject at a time.
type Service struct {
	engine    Engine
	results   ResultLogger
	templates *templates.Registry
	stages    []workflows.Stage
	repo      analysis.Repository
	publisher events.Publisher
	locker    Locker
	tracker   errors.Tracker

	workDir      string
	stageTimeout time.Duration
	cleanCharts  bool
	lockTTL      time.Duration

	mu      sync.Mutex
	active  *analysis.Run
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup

	log *logger.Logger
}

// NewService creates the pipeline orchestrator.
func NewService(deps Deps) (*Service, error) {
	if deps.Engine == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "engine is required")
	}
	if deps.Results == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "result logger is required")
	}
	if deps.Templates == nil {
		deps.Templates = templates.Get()
	}
	if len(deps.Stages) == 0 {
		deps.Stages = workflows.StockAnalysis()
	}
	if deps.Roster == nil {
		deps.Roster = agents.DefaultAgentConfigs
	}
	if err := workflows.Validate(deps.Stages, deps.Roster); err != nil {
		return nil, err
	}
	if deps.Repository == nil {
		deps.Repository = memory.NewAnalysisRepository(0)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewFanout()
	}
	if deps.WorkDir == "" {
		deps.WorkDir = "."
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultLockTTL
	}

	return &Service{
		engine:       deps.Engine,
		results:      deps.Results,
		templates:    deps.Templates,
		stages:       deps.Stages,
		repo:         deps.Repository,
		publisher:    deps.Publisher,
		locker:       deps.Locker,
		tracker:      deps.Tracker,
		workDir:      deps.WorkDir,
		stageTimeout: deps.StageTimeout,
		cleanCharts:  deps.CleanCharts,
		lockTTL:      deps.LockTTL,
		cancels:      make(map[uuid.UUID]context.CancelFunc),
		log:          logger.Get().With("component", "analysis_pipeline"),
	}, nil
}

// Run executes a full run and blocks until it ends.
func (s *Service) Run(ctx context.Context, subject string, confirmer Confirmer) (*analysis.Run, error) {
	run, release, err := s.begin(ctx, subject)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.execute(ctx, run, confirmer)
	return s.snapshot(run), err
}

// Start launches a run in the background and returns it as pending. The
// run outlives ctx; use Cancel or Shutdown to stop it.
func (s *Service) Start(ctx context.Context, subject string, confirmer Confirmer) (*analysis.Run, error) {
	run, release, err := s.begin(ctx, subject)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancels[run.ID] = cancel
	s.mu.Unlock()

	snap := s.snapshot(run)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.cancels, run.ID)
			s.mu.Unlock()
		}()
		defer release()

		if err := s.execute(runCtx, run, confirmer); err != nil {
			s.log.Warnw("Run ended with error", "run_id", run.ID, "error", err)
		}
	}()

	return snap, nil
}

// Cancel stops a background run.
func (s *Service) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, ok := s.cancels[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "active run %s", id)
	}
	cancel()
	return nil
}

// Shutdown cancels background runs and waits for them to stop.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the live run when id is active, else the stored one.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*analysis.Run, error) {
	s.mu.Lock()
	if s.active != nil && s.active.ID == id {
		run := s.active.Clone()
		s.mu.Unlock()
		return run, nil
	}
	s.mu.Unlock()

	return s.repo.GetByID(ctx, id)
}

// Active returns the run in progress, if any.
func (s *Service) Active() (*analysis.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, false
	}
	return s.active.Clone(), true
}

// Recent lists stored runs, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]analysis.Run, error) {
	return s.repo.ListRecent(ctx, limit)
}

// begin claims the working directory for a new run.
func (s *Service) begin(ctx context.Context, subject string) (*analysis.Run, func(), error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, nil, errors.ErrEmptySubject
	}

	s.mu.Lock()
	if s.active != nil {
		busy := s.active.ID
		s.mu.Unlock()
		return nil, nil, errors.Wrapf(errors.ErrPipelineBusy, "run %s in progress", busy)
	}
	run := analysis.NewRun(subject)
	s.active = run
	s.mu.Unlock()

	free := func() {
		s.mu.Lock()
		if s.active == run {
			s.active = nil
		}
		s.mu.Unlock()
	}

	if s.locker == nil {
		return run, free, nil
	}

	lease, ok, err := s.locker.Lock(ctx, s.lockName(), s.lockTTL)
	switch {
	case err != nil:
		s.log.Warnw("Workspace lock unavailable, continuing with in-process guard", "error", err)
		return run, free, nil
	case !ok:
		free()
		return nil, nil, errors.Wrap(errors.ErrPipelineBusy, "working directory locked by another process")
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepLease(lease, stop, done)

	return run, func() {
		close(stop)
		<-done
		if err := lease.Release(context.Background()); err != nil {
			s.log.Warnw("Failed to release workspace lock", "error", err)
		}
		free()
	}, nil
}

// keepLease refreshes the workspace lock until stop is closed.
func (s *Service) keepLease(lease Lease, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.lockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL/3)
			err := lease.Refresh(ctx, s.lockTTL)
			cancel()
			if err != nil {
				s.log.Warnw("Failed to refresh workspace lock", "error", err)
			}
		}
	}
}

func (s *Service) lockName() string {
	dir, err := filepath.Abs(s.workDir)
	if err != nil {
		dir = s.workDir
	}
	sum := sha256.Sum256([]byte(dir))
	return "pipeline:" + hex.EncodeToString(sum[:8])
}

// execute drives one run through every stage.
func (s *Service) execute(ctx context.Context, run *analysis.Run, confirmer Confirmer) error {
	if confirmer == nil {
		confirmer = AutoApprove
	}
	ctx = errors.WithRunID(ctx, run.ID.String())
	log := s.log.With("run_id", run.ID, "subject", run.Subject)

	metrics.RunsStarted.Inc()
	s.transition(run, analysis.StatusRunning, nil)
	s.emit(ctx, run, events.TypeRunStarted, func(ev *events.Event) { ev.Subject = run.Subject })
	s.save(ctx, run)
	log.Infow("Run started", "stages", len(s.stages))

	if s.cleanCharts {
		if n, err := charts.Clean(s.workDir); err != nil {
			log.Warnw("Failed to clean charts", "error", err)
		} else if n > 0 {
			log.Infow("Removed charts from previous run", "count", n)
		}
	}

	sessionID, err := s.engine.StartSession(ctx)
	if err != nil {
		return s.fail(ctx, run, "", errors.Wrap(err, "start session"))
	}
	defer func() {
		if err := s.engine.EndSession(context.Background(), sessionID); err != nil {
			log.Debugw("Failed to end session", "error", err)
		}
	}()

	var (
		feedback string
		last     string
	)
	for i, stage := range s.stages {
		if stage.RequiresConfirmation {
			decision, err := s.confirm(ctx, run, stage, confirmer)
			if err != nil {
				return s.fail(ctx, run, stage.Name.String(), err)
			}
			if !decision.Approved {
				s.transition(run, analysis.StatusRejected, nil)
				s.emit(ctx, run, events.TypeRunRejected, nil)
				s.save(ctx, run)
				metrics.RecordRunFinished(string(analysis.StatusRejected), run.Duration())
				log.Infow("Run rejected at confirmation gate", "stage", stage.Name)
				return errors.ErrConfirmationRejected
			}
			feedback = decision.Feedback
			s.transition(run, analysis.StatusRunning, func(r *analysis.Run) { r.Feedback = feedback })
		}

		out, err := s.runStage(ctx, run, i, stage, sessionID, feedback)
		if err != nil {
			return s.fail(ctx, run, stage.Name.String(), errors.NewDomainError(
				CodeStageFailed, "stage "+stage.Name.String()+" failed", err,
			))
		}
		last = out
	}

	s.mutate(run, func(r *analysis.Run) { r.Result = last })
	path, err := s.results.Log(run.Subject, last)
	if err != nil {
		return s.fail(ctx, run, "", err)
	}

	s.transition(run, analysis.StatusCompleted, func(r *analysis.Run) {
		r.LogFile = path
		r.CurrentStage = ""
	})
	s.emit(ctx, run, events.TypeRunCompleted, nil)
	s.save(ctx, run)
	metrics.RecordRunFinished(string(analysis.StatusCompleted), run.Duration())
	log.Infow("Run completed", "duration", run.Duration(), "log_file", path)
	return nil
}

func (s *Service) confirm(ctx context.Context, run *analysis.Run, stage workflows.Stage, confirmer Confirmer) (Decision, error) {
	s.transition(run, analysis.StatusAwaitingConfirmation, func(r *analysis.Run) { r.CurrentStage = stage.Name.String() })
	s.emit(ctx, run, events.TypeConfirmationRequested, func(ev *events.Event) { ev.Stage = stage.Name.String() })
	s.save(ctx, run)

	start := time.Now()
	decision, err := confirmer.Confirm(ctx, s.snapshot(run))
	metrics.ConfirmationWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return Decision{}, errors.Wrap(err, "confirmation")
	}

	s.emit(ctx, run, events.TypeConfirmationResolved, func(ev *events.Event) {
		ev.Stage = stage.Name.String()
		ev.Message = decision.Feedback
		if !decision.Approved {
			ev.Message = "rejected"
		}
	})
	return decision, nil
}

func (s *Service) runStage(ctx context.Context, run *analysis.Run, position int, stage workflows.Stage, sessionID, feedback string) (string, error) {
	name := stage.Name.String()
	s.mutate(run, func(r *analysis.Run) { r.CurrentStage = name })
	s.emit(ctx, run, events.TypeStageStarted, func(ev *events.Event) {
		ev.Stage = name
		ev.Agent = string(stage.Agent)
	})
	if s.tracker != nil {
		s.tracker.AddBreadcrumb(ctx, "stage "+name, "pipeline", errors.LevelInfo, map[string]interface{}{"agent": string(stage.Agent)})
	}

	prompt, err := stage.Prompt(s.templates, workflows.PromptInput{Subject: run.Subject, Feedback: feedback})
	if err != nil {
		return "", err
	}

	stageCtx := tools.WithInvocationMetadata(ctx, tools.InvocationMetadata{RunID: run.ID.String(), Stage: name})
	if s.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, s.stageTimeout)
		defer cancel()
	}

	started := time.Now().UTC()
	out, err := s.engine.Execute(stageCtx, sessionID, stage.Agent, prompt)
	metrics.RecordStage(name, time.Since(started), err)
	if err != nil {
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.Wrapf(errors.ErrTimeout, "stage %s exceeded %s", name, s.stageTimeout)
		}
		return "", err
	}

	s.mutate(run, func(r *analysis.Run) {
		r.Stages = append(r.Stages, analysis.StageResult{
			RunID:        r.ID,
			Position:     position,
			Stage:        name,
			Agent:        string(stage.Agent),
			Output:       out.Text,
			ToolCalls:    out.ToolCallCount,
			InputTokens:  out.InputTokens,
			OutputTokens: out.OutputTokens,
			DurationMs:   out.Duration.Milliseconds(),
			StartedAt:    started,
		})
	})
	s.emit(ctx, run, events.TypeStageCompleted, func(ev *events.Event) {
		ev.Stage = name
		ev.Agent = string(stage.Agent)
		ev.Message = out.Text
	})
	return out.Text, nil
}

func (s *Service) fail(ctx context.Context, run *analysis.Run, stage string, cause error) error {
	s.transition(run, analysis.StatusFailed, func(r *analysis.Run) { r.Error = cause.Error() })
	if stage != "" {
		s.emit(ctx, run, events.TypeStageFailed, func(ev *events.Event) {
			ev.Stage = stage
			ev.Message = cause.Error()
		})
	}
	s.emit(ctx, run, events.TypeRunFailed, func(ev *events.Event) { ev.Message = cause.Error() })
	s.save(context.WithoutCancel(ctx), run)
	metrics.RecordRunFinished(string(analysis.StatusFailed), run.Duration())

	if s.tracker != nil && !errors.Is(cause, context.Canceled) {
		_ = s.tracker.CaptureError(ctx, cause, map[string]string{"stage": stage, "subject": run.Subject})
	}
	s.log.Errorw("Run failed", "run_id", run.ID, "stage", stage, "error", cause)
	return cause
}

// transition applies a status change plus optional field updates under the
// service lock. Illegal moves are logged and skipped.
func (s *Service) transition(run *analysis.Run, to analysis.Status, fn func(*analysis.Run)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := run.Transition(to); err != nil {
		s.log.Errorw("Illegal run transition", "run_id", run.ID, "error", err)
		return
	}
	if fn != nil {
		fn(run)
	}
}

func (s *Service) mutate(run *analysis.Run, fn func(*analysis.Run)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(run)
}

func (s *Service) snapshot(run *analysis.Run) *analysis.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return run.Clone()
}

func (s *Service) save(ctx context.Context, run *analysis.Run) {
	if err := s.repo.Save(ctx, s.snapshot(run)); err != nil {
		s.log.Warnw("Failed to store run", "run_id", run.ID, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, run *analysis.Run, t events.Type, fill func(*events.Event)) {
	ev := events.New(t, run.ID.String())
	if fill != nil {
		fill(&ev)
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Debugw("Event not delivered to every sink", "type", t, "error", err)
	}
}
