package analysis

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"stockcrew/internal/domain/analysis"
	"stockcrew/pkg/errors"
)

// ConfirmPrompt is asked on the terminal before the report stage.
const ConfirmPrompt = "Proceed with the markdown report? [Y/n/feedback] "

// Decision is the operator's answer at the report gate.
type Decision struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// Confirmer suspends a run until the operator decides.
type Confirmer interface {
	Confirm(ctx context.Context, run *analysis.Run) (Decision, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, run *analysis.Run) (Decision, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, run *analysis.Run) (Decision, error) {
	return f(ctx, run)
}

// AutoApprove approves every gate without asking.
var AutoApprove = ConfirmerFunc(func(context.Context, *analysis.Run) (Decision, error) {
	return Decision{Approved: true}, nil
})

// PromptConfirmer asks on a terminal. A read abandoned by a cancelled
// Confirm stays pending and answers the next Confirm, so the input is never
// read by two goroutines.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer

	mu      sync.Mutex
	pending chan answer
}

type answer struct {
	line string
	err  error
}

func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *PromptConfirmer) Confirm(ctx context.Context, _ *analysis.Run) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.out, ConfirmPrompt)

	if c.pending == nil {
		ch := make(chan answer, 1)
		go func() {
			line, err := c.in.ReadString('\n')
			ch <- answer{line: line, err: err}
		}()
		c.pending = ch
	}

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case a := <-c.pending:
		c.pending = nil
		if a.err != nil && a.err != io.EOF {
			return Decision{}, errors.Wrap(a.err, "read confirmation")
		}
		if a.err == io.EOF && a.line == "" {
			return Decision{}, errors.Wrap(errors.ErrConfirmationRejected, "no answer on input")
		}
		return ParseDecision(a.line), nil
	}
}

// ParseDecision reads an empty line or yes as approval, no as rejection and
// anything else as approval with that text as feedback.
func ParseDecision(line string) Decision {
	text := strings.TrimSpace(line)
	switch strings.ToLower(text) {
	case "", "y", "yes":
		return Decision{Approved: true}
	case "n", "no":
		return Decision{Approved: false}
	default:
		return Decision{Approved: true, Feedback: text}
	}
}

// Gate is the web confirmer: a run waits until Resolve is called with its id.
type Gate struct {
	mu      sync.Mutex
	pending map[string]chan Decision
}

func NewGate() *Gate {
	return &Gate{pending: make(map[string]chan Decision)}
}

func (g *Gate) Confirm(ctx context.Context, run *analysis.Run) (Decision, error) {
	id := run.ID.String()
	ch := make(chan Decision, 1)

	g.mu.Lock()
	g.pending[id] = ch
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case d := <-ch:
		return d, nil
	}
}

// Resolve answers a waiting run.
func (g *Gate) Resolve(runID string, d Decision) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.pending[runID]
	if !ok {
		return errors.Wrapf(errors.ErrNotAwaitingConfirmation, "run %s", runID)
	}
	delete(g.pending, runID)
	ch <- d
	return nil
}

// Waiting reports whether runID is parked at the gate.
func (g *Gate) Waiting(runID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[runID]
	return ok
}
