package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *captureNotifier) Notify(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *captureNotifier) captured() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

func TestDispatcherDelivers(t *testing.T) {
	email := &captureNotifier{}
	push := &captureNotifier{}
	d := NewDispatcher(8, email, push)
	d.Start()

	target := uuid.New()
	d.Enqueue(Event{Kind: KindTaskAssigned, TargetID: target, Message: "assigned"})
	d.Enqueue(Event{Kind: KindCommentAdded, TargetID: target, Message: "commented"})
	d.Stop()

	got := email.captured()
	require.Len(t, got, 2)
	assert.Equal(t, KindTaskAssigned, got[0].Kind)
	assert.Equal(t, KindCommentAdded, got[1].Kind)
	assert.False(t, got[0].OccurredAt.IsZero())

	// Every notifier sees every event.
	assert.Len(t, push.captured(), 2)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	sink := &captureNotifier{}
	d := NewDispatcher(1, sink)

	// The worker is not started, so the buffer fills after one event. The
	// second Enqueue must return immediately instead of blocking.
	d.Enqueue(Event{Kind: KindTaskAssigned})

	done := make(chan struct{})
	go func() {
		d.Enqueue(Event{Kind: KindCommentAdded})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full buffer")
	}

	d.Start()
	d.Stop()
	got := sink.captured()
	require.Len(t, got, 1)
	assert.Equal(t, KindTaskAssigned, got[0].Kind)
}

func TestStopIsIdempotent(t *testing.T) {
	d := NewDispatcher(1)
	d.Start()
	d.Stop()
	d.Stop()
}
