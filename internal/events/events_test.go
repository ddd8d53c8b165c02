package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/errors"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcasterReplaysHistory(t *testing.T) {
	b := NewBroadcaster()
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, New(TypeRunStarted, "run-1")))
	require.NoError(t, b.Publish(ctx, New(TypeRunStarted, "run-2")))

	ch, cancel := b.Subscribe("run-1")
	defer cancel()

	assert.Equal(t, TypeRunStarted, receive(t, ch).Type)

	stage := New(TypeStageStarted, "run-1")
	stage.Stage = "research"
	require.NoError(t, b.Publish(ctx, stage))
	require.NoError(t, b.Publish(ctx, New(TypeStageStarted, "run-2")))

	got := receive(t, ch)
	assert.Equal(t, "research", got.Stage)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event for other run: %+v", ev)
	default:
	}
}

func TestBroadcasterCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("")
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, b.Publish(context.Background(), New(TypeRunCompleted, "run-1")))
}

type failingSink struct{}

func (failingSink) Publish(context.Context, Event) error { return errors.ErrUnavailable }

func TestFanout(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("run-1")
	defer cancel()

	f := NewFanout(failingSink{}, nil, b)
	err := f.Publish(context.Background(), New(TypeRunFailed, "run-1"))

	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.Equal(t, TypeRunFailed, receive(t, ch).Type)
	assert.True(t, TypeRunFailed.Terminal())
	assert.False(t, TypeStageFailed.Terminal())
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "plain", SanitizeUTF8("plain"))
	assert.Equal(t, "a�b", SanitizeUTF8("a\xffb"))
}
