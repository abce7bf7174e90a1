package status

import (
	"context"
	"log/slog"
)

// DefaultQueueSize is the number of events a Queue buffers before dropping.
const DefaultQueueSize = 256

// Queue hands events to the next Broadcaster on its own goroutine, so a slow
// sink never holds up the caller. Events are delivered in order; once the
// buffer is full new events are dropped.
type Queue struct {
	next   Broadcaster
	events chan Event
}

func NewQueue(next Broadcaster, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{next: next, events: make(chan Event, size)}
}

// Run forwards queued events until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-q.events:
			q.next.Broadcast(event)
		}
	}
}

func (q *Queue) Broadcast(event Event) {
	select {
	case q.events <- event:
	default:
		slog.Warn("status queue full, dropping event", "subjectID", event.SubjectID, "status", event.Status)
	}
}

var _ Broadcaster = (*Queue)(nil)
