package analysis

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/internal/agents"
	"stockcrew/internal/agents/workflows"
	"stockcrew/internal/domain/analysis"
	"stockcrew/internal/events"
	"stockcrew/pkg/errors"
)

type call struct {
	agent  agents.AgentType
	prompt string
}

type fakeEngine struct {
	mu      sync.Mutex
	calls   []call
	failOn  agents.AgentType
	blockOn agents.AgentType
	ended   int
}

func (e *fakeEngine) StartSession(context.Context) (string, error) { return "session-1", nil }

func (e *fakeEngine) EndSession(context.Context, string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended++
	return nil
}

func (e *fakeEngine) Execute(ctx context.Context, _ string, agentType agents.AgentType, prompt string) (*agents.ExecutionOutput, error) {
	e.mu.Lock()
	e.calls = append(e.calls, call{agent: agentType, prompt: prompt})
	e.mu.Unlock()

	if agentType == e.blockOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if agentType == e.failOn {
		return nil, errors.Wrap(errors.ErrUnavailable, "model down")
	}
	return &agents.ExecutionOutput{AgentType: agentType, Text: string(agentType) + " output", ToolCallCount: 1}, nil
}

func (e *fakeEngine) calledAgents() []agents.AgentType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]agents.AgentType, 0, len(e.calls))
	for _, c := range e.calls {
		out = append(out, c.agent)
	}
	return out
}

func (e *fakeEngine) promptFor(agentType agents.AgentType) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.calls {
		if c.agent == agentType {
			return c.prompt
		}
	}
	return ""
}

type fakeResults struct {
	mu      sync.Mutex
	entries []string
	err     error
}

func (r *fakeResults) Log(subject, response string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.entries = append(r.entries, subject+"|"+response)
	return subject + ".json", nil
}

func (r *fakeResults) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type denyLocker struct{}

func (denyLocker) Lock(context.Context, string, time.Duration) (Lease, bool, error) {
	return nil, false, nil
}

type fixture struct {
	svc     *Service
	engine  *fakeEngine
	results *fakeResults
	bus     *events.Broadcaster
}

func newFixture(t *testing.T, tweak func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{engine: &fakeEngine{}, results: &fakeResults{}, bus: events.NewBroadcaster()}
	deps := Deps{
		Engine:    f.engine,
		Results:   f.results,
		Publisher: f.bus,
		WorkDir:   t.TempDir(),
	}
	if tweak != nil {
		tweak(&deps)
	}
	svc, err := NewService(deps)
	require.NoError(t, err)
	f.svc = svc
	return f
}

var stageAgents = []agents.AgentType{
	agents.AgentInteractiveAnalyst,
	agents.AgentResearchAnalyst,
	agents.AgentFinancialAnalyst,
	agents.AgentFinancialAnalyst,
	agents.AgentInvestmentAdvisor,
	agents.AgentChartCreator,
	agents.AgentMarkdownWriter,
}

func TestRunCompletes(t *testing.T) {
	f := newFixture(t, nil)
	ch, cancel := f.bus.Subscribe("")
	defer cancel()

	run, err := f.svc.Run(context.Background(), "  Apple  ", AutoApprove)
	require.NoError(t, err)

	assert.Equal(t, analysis.StatusCompleted, run.Status)
	assert.Equal(t, "Apple", run.Subject)
	assert.Equal(t, "markdown_writer output", run.Result)
	assert.Equal(t, "Apple.json", run.LogFile)
	assert.NotNil(t, run.FinishedAt)
	require.Len(t, run.Stages, 7)
	assert.Equal(t, "filings_analysis", run.Stages[3].Stage)

	assert.Equal(t, stageAgents, f.engine.calledAgents())
	assert.Contains(t, f.engine.promptFor(agents.AgentResearchAnalyst), "Selected company by the customer: Apple")
	assert.NotContains(t, f.engine.promptFor(agents.AgentInteractiveAnalyst), "Apple")
	assert.Equal(t, []string{"Apple|markdown_writer output"}, f.results.entries)
	assert.Equal(t, 1, f.engine.ended)

	var types []events.Type
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, events.TypeRunStarted, types[0])
	assert.Equal(t, events.TypeRunCompleted, types[len(types)-1])
	assert.Contains(t, types, events.TypeConfirmationRequested)

	stored, err := f.svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusCompleted, stored.Status)

	_, active := f.svc.Active()
	assert.False(t, active)
}

func TestRunRejectedAtGate(t *testing.T) {
	f := newFixture(t, nil)
	var seen analysis.Status
	reject := ConfirmerFunc(func(_ context.Context, run *analysis.Run) (Decision, error) {
		seen = run.Status
		return Decision{Approved: false}, nil
	})

	run, err := f.svc.Run(context.Background(), "Apple", reject)
	assert.True(t, errors.Is(err, errors.ErrConfirmationRejected))
	assert.Equal(t, analysis.StatusAwaitingConfirmation, seen)
	assert.Equal(t, analysis.StatusRejected, run.Status)
	assert.Len(t, run.Stages, 6)
	assert.NotContains(t, f.engine.calledAgents(), agents.AgentMarkdownWriter)
	assert.Zero(t, f.results.count(), "rejected runs are not logged")
}

func TestRunFeedbackReachesReport(t *testing.T) {
	f := newFixture(t, nil)
	withFeedback := ConfirmerFunc(func(context.Context, *analysis.Run) (Decision, error) {
		return ParseDecision("focus on margins\n"), nil
	})

	run, err := f.svc.Run(context.Background(), "Apple", withFeedback)
	require.NoError(t, err)
	assert.Equal(t, "focus on margins", run.Feedback)
	assert.Contains(t, f.engine.promptFor(agents.AgentMarkdownWriter), "Human feedback: focus on margins")
}

func TestRunStageFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.failOn = agents.AgentInvestmentAdvisor

	run, err := f.svc.Run(context.Background(), "Apple", AutoApprove)
	require.Error(t, err)

	var domainErr *errors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, CodeStageFailed, domainErr.Code)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))

	assert.Equal(t, analysis.StatusFailed, run.Status)
	assert.Equal(t, "recommendation", run.CurrentStage)
	assert.Len(t, run.Stages, 4)
	assert.Zero(t, f.results.count())
}

func TestRunResultLogErrorPropagates(t *testing.T) {
	f := newFixture(t, nil)
	f.results.err = errors.New("disk full")

	run, err := f.svc.Run(context.Background(), "Apple", AutoApprove)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, analysis.StatusFailed, run.Status)
}

func TestRunStageTimeout(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.StageTimeout = 20 * time.Millisecond })
	f.engine.blockOn = agents.AgentResearchAnalyst

	run, err := f.svc.Run(context.Background(), "Apple", AutoApprove)
	assert.True(t, errors.Is(err, errors.ErrTimeout))
	assert.Equal(t, analysis.StatusFailed, run.Status)
}

func TestRunEmptySubject(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Run(context.Background(), "   ", AutoApprove)
	assert.True(t, errors.Is(err, errors.ErrEmptySubject))
	assert.Empty(t, f.engine.calledAgents())
}

func TestNewServiceValidatesStages(t *testing.T) {
	stages := append(workflows.StockAnalysis(), workflows.Stage{
		Name:     "valuation",
		Agent:    "quant_analyst",
		Template: "tasks/recommendation",
	})
	_, err := NewService(Deps{Engine: &fakeEngine{}, Results: &fakeResults{}, Stages: stages})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "quant_analyst")
}

func waitTerminal(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type.Terminal() {
				return ev
			}
		case <-timeout:
			t.Fatal("run did not finish")
			return events.Event{}
		}
	}
}

func TestStartBusyAndGate(t *testing.T) {
	f := newFixture(t, nil)
	gate := NewGate()

	run, err := f.svc.Start(context.Background(), "Apple", gate)
	require.NoError(t, err)
	ch, cancel := f.bus.Subscribe(run.ID.String())
	defer cancel()

	require.Eventually(t, func() bool { return gate.Waiting(run.ID.String()) }, 2*time.Second, 5*time.Millisecond)

	live, err := f.svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusAwaitingConfirmation, live.Status)
	assert.Equal(t, "markdown_report", live.CurrentStage)

	_, err = f.svc.Start(context.Background(), "Microsoft", gate)
	assert.True(t, errors.Is(err, errors.ErrPipelineBusy))

	require.NoError(t, gate.Resolve(run.ID.String(), Decision{Approved: true}))
	assert.Equal(t, events.TypeRunCompleted, waitTerminal(t, ch).Type)

	require.Eventually(t, func() bool {
		_, active := f.svc.Active()
		return !active
	}, time.Second, 5*time.Millisecond)

	again, err := f.svc.Start(context.Background(), "Microsoft", AutoApprove)
	require.NoError(t, err)
	require.NoError(t, f.svc.Shutdown(context.Background()))

	recent, err := f.svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.NotEqual(t, run.ID, again.ID)
}

func TestCancelBackgroundRun(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.blockOn = agents.AgentInteractiveAnalyst

	run, err := f.svc.Start(context.Background(), "Apple", AutoApprove)
	require.NoError(t, err)
	ch, cancel := f.bus.Subscribe(run.ID.String())
	defer cancel()

	require.NoError(t, f.svc.Cancel(run.ID))
	assert.Equal(t, events.TypeRunFailed, waitTerminal(t, ch).Type)
	require.NoError(t, f.svc.Shutdown(context.Background()))

	stored, err := f.svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusFailed, stored.Status)
}

func TestLockerDenied(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Locker = denyLocker{} })

	_, err := f.svc.Run(context.Background(), "Apple", AutoApprove)
	assert.True(t, errors.Is(err, errors.ErrPipelineBusy))

	_, active := f.svc.Active()
	assert.False(t, active)
}

type countingLease struct {
	refreshes atomic.Int32
	released  atomic.Bool
}

func (l *countingLease) Refresh(context.Context, time.Duration) error {
	l.refreshes.Add(1)
	return nil
}

func (l *countingLease) Release(context.Context) error {
	l.released.Store(true)
	return nil
}

type leaseLocker struct {
	lease *countingLease
	ttl   time.Duration
}

func (l *leaseLocker) Lock(_ context.Context, _ string, ttl time.Duration) (Lease, bool, error) {
	l.ttl = ttl
	return l.lease, true, nil
}

func TestLeaseRefreshedWhileAwaitingConfirmation(t *testing.T) {
	locker := &leaseLocker{lease: &countingLease{}}
	f := newFixture(t, func(d *Deps) {
		d.Locker = locker
		d.LockTTL = 30 * time.Millisecond
	})

	var refreshedAtGate bool
	slow := ConfirmerFunc(func(context.Context, *analysis.Run) (Decision, error) {
		refreshedAtGate = assert.Eventually(t, func() bool { return locker.lease.refreshes.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
		return Decision{Approved: true}, nil
	})

	_, err := f.svc.Run(context.Background(), "Apple", slow)
	require.NoError(t, err)
	assert.True(t, refreshedAtGate)
	assert.Equal(t, 30*time.Millisecond, locker.ttl)
	assert.True(t, locker.lease.released.Load())

	after := locker.lease.refreshes.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, locker.lease.refreshes.Load(), "refresh stops once the run ends")
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in   string
		want Decision
	}{
		{in: "\n", want: Decision{Approved: true}},
		{in: "Y\n", want: Decision{Approved: true}},
		{in: "yes", want: Decision{Approved: true}},
		{in: "n\n", want: Decision{Approved: false}},
		{in: " NO ", want: Decision{Approved: false}},
		{in: "add a risks section\n", want: Decision{Approved: true, Feedback: "add a risks section"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDecision(tt.in), tt.in)
	}
}

func TestPromptConfirmer(t *testing.T) {
	var out bytes.Buffer
	c := NewPromptConfirmer(strings.NewReader("n\n"), &out)

	d, err := c.Confirm(context.Background(), analysis.NewRun("Apple"))
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, ConfirmPrompt, out.String())

	_, err = NewPromptConfirmer(strings.NewReader(""), &out).Confirm(context.Background(), analysis.NewRun("Apple"))
	assert.True(t, errors.Is(err, errors.ErrConfirmationRejected))
}

// serialReader records the most reads in flight at once.
type serialReader struct {
	r       io.Reader
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (r *serialReader) Read(p []byte) (int, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		seen := r.maxSeen.Load()
		if n <= seen || r.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	return r.r.Read(p)
}

func TestPromptConfirmerResumesAbandonedRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	in := &serialReader{r: pr}
	c := NewPromptConfirmer(in, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Confirm(ctx, analysis.NewRun("Apple"))
	require.ErrorIs(t, err, context.Canceled)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = pw.Write([]byte("n\n"))
	}()
	d, err := c.Confirm(context.Background(), analysis.NewRun("Apple"))
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, int32(1), in.maxSeen.Load())
}

func TestGateResolveWithoutWaiter(t *testing.T) {
	err := NewGate().Resolve("nope", Decision{Approved: true})
	assert.True(t, errors.Is(err, errors.ErrNotAwaitingConfirmation))
}
