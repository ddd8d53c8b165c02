package events

import (
	"context"
	"sync"

	"stockcrew/pkg/logger"
)

const (
	subscriberBuffer = 64
	historyLimit     = 256
)

type subscriber struct {
	runID string
	ch    chan Event
}

// Broadcaster fans events out to in-process subscribers, such as websocket
// connections. It keeps each run's history so a late subscriber first
// receives what it missed.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	history map[string][]Event
	log     *logger.Logger
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:    make(map[*subscriber]struct{}),
		history: make(map[string][]Event),
		log:     logger.Get().With("component", "event_broadcaster"),
	}
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (b *Broadcaster) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := append(b.history[ev.RunID], ev)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	b.history[ev.RunID] = h

	for s := range b.subs {
		if s.runID != "" && s.runID != ev.RunID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			b.log.Warnw("Dropping event for slow subscriber", "type", ev.Type, "run_id", ev.RunID)
		}
	}
	return nil
}

// Subscribe streams the events of runID, or of every run when runID is
// empty. The returned cancel func closes the channel.
func (b *Broadcaster) Subscribe(runID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	past := b.history[runID]
	s := &subscriber{runID: runID, ch: make(chan Event, subscriberBuffer+len(past))}
	for _, ev := range past {
		s.ch <- ev
	}
	b.subs[s] = struct{}{}

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, s)
			close(s.ch)
		})
	}
}

// Forget drops the stored history of a run.
func (b *Broadcaster) Forget(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.history, runID)
}
