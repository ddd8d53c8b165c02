package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []Status
		ok   bool
	}{
		{name: "happy path", path: []Status{StatusRunning, StatusRunning, StatusAwaitingConfirmation, StatusRunning, StatusCompleted}, ok: true},
		{name: "rejected at gate", path: []Status{StatusRunning, StatusAwaitingConfirmation, StatusRejected}, ok: true},
		{name: "stage failure", path: []Status{StatusRunning, StatusFailed}, ok: true},
		{name: "reject while running", path: []Status{StatusRunning, StatusRejected}, ok: false},
		{name: "complete from pending", path: []Status{StatusCompleted}, ok: false},
		{name: "restart after completion", path: []Status{StatusRunning, StatusCompleted, StatusRunning}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := NewRun("AAPL")
			var err error
			for _, s := range tt.path {
				if err = run.Transition(s); err != nil {
					break
				}
			}
			if tt.ok {
				require.NoError(t, err)
				assert.True(t, run.Status.Terminal() == (run.FinishedAt != nil))
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRunClone(t *testing.T) {
	run := NewRun("MSFT")
	run.Stages = append(run.Stages, StageResult{Stage: "research", Output: "notes"})

	cp := run.Clone()
	cp.Stages[0].Output = "changed"
	assert.Equal(t, "notes", run.Stages[0].Output)
}
