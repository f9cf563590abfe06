package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a user-facing notification. Delivery is fire-and-forget: the
// application never blocks or fails on notification problems.
type Event struct {
	Kind       string    `json:"kind"`
	OrgID      uuid.UUID `json:"org_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	TargetID   uuid.UUID `json:"target_id"`
	ResourceID uuid.UUID `json:"resource_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	KindTaskAssigned      = "task.assigned"
	KindInvitationCreated = "invitation.created"
	KindCommentAdded      = "comment.added"
)

// Notifier delivers one event over one channel.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Dispatcher fans events out to the registered notifiers from a single worker
// goroutine. Enqueue never blocks; when the buffer is full the event is
// dropped and logged.
type Dispatcher struct {
	notifiers []Notifier
	events    chan Event
	done      chan struct{}
	stop      sync.Once
}

func NewDispatcher(buffer int, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		events:    make(chan Event, buffer),
		done:      make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for ev := range d.events {
			for _, n := range d.notifiers {
				if err := n.Notify(context.Background(), ev); err != nil {
					slog.Warn("notification delivery failed",
						slog.String("kind", ev.Kind), slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop drains the queue and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.stop.Do(func() {
		close(d.events)
	})
	<-d.done
}

func (d *Dispatcher) Enqueue(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	select {
	case d.events <- ev:
	default:
		slog.Warn("notification queue full, dropping event", slog.String("kind", ev.Kind))
	}
}

// LogNotifier writes notifications to the structured log. It stands in for
// real delivery channels in development and in tests.
type LogNotifier struct {
	Channel string
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	slog.Info("notification",
		slog.String("channel", n.Channel),
		slog.String("kind", ev.Kind),
		slog.String("target_id", ev.TargetID.String()),
		slog.String("message", ev.Message))
	return nil
}
