package events

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Type names a pipeline event.
type Type string

const (
	TypeRunStarted            Type = "run.started"
	TypeStageStarted          Type = "stage.started"
	TypeStageCompleted        Type = "stage.completed"
	TypeStageFailed           Type = "stage.failed"
	TypeToolCalled            Type = "tool.called"
	TypeConfirmationRequested Type = "confirmation.requested"
	TypeConfirmationResolved  Type = "confirmation.resolved"
	TypeRunCompleted          Type = "run.completed"
	TypeRunFailed             Type = "run.failed"
	TypeRunRejected           Type = "run.rejected"
)

// Terminal reports whether the event ends a run's stream.
func (t Type) Terminal() bool {
	return t == TypeRunCompleted || t == TypeRunFailed || t == TypeRunRejected
}

// Event is one step of a pipeline run as seen by observers.
type Event struct {
	Type    Type      `json:"type"`
	RunID   string    `json:"run_id"`
	Subject string    `json:"subject,omitempty"`
	Stage   string    `json:"stage,omitempty"`
	Agent   string    `json:"agent,omitempty"`
	Tool    string    `json:"tool,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// New builds an event stamped with the current time.
func New(t Type, runID string) Event {
	return Event{Type: t, RunID: runID, At: time.Now().UTC()}
}

// SanitizeUTF8 replaces invalid byte sequences so the event always
// serializes; tool output scraped from the web is not guaranteed to be valid.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
