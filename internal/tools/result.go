package tools

import "fmt"

// Result is what a tool hands back to the model: either a payload or a
// failure message. Tools never surface Go errors to the engine.
type Result struct {
	text      string
	failed    bool
	retryable bool
}

// Ok wraps a successful payload.
func Ok(text string) Result {
	return Result{text: text}
}

// Fail wraps a failure message that repeating the call will not fix.
func Fail(message string) Result {
	return Result{text: message, failed: true}
}

// Failf formats a failure message.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// Transient wraps a failure caused by a collaborator that may recover,
// such as a network error. The retry middleware only repeats these.
func Transient(message string) Result {
	return Result{text: message, failed: true, retryable: true}
}

// String renders the text given to the model.
func (r Result) String() string {
	return r.text
}

func (r Result) Failed() bool {
	return r.failed
}

func (r Result) Retryable() bool {
	return r.failed && r.retryable
}
