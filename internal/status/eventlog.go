package status

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamKey is the Redis stream status events are appended to.
const StreamKey = "voice-overlay:events"

// DefaultStreamMaxLen caps the stream; older entries are trimmed.
const DefaultStreamMaxLen = 10000

// LoggedEvent is an event as it was recorded in an event log.
type LoggedEvent struct {
	ID string
	At time.Time
	Event
}

// EventLog appends status events for later inspection.
type EventLog interface {
	Append(ctx context.Context, events ...Event) error
}

// LogBroadcaster appends every event to an EventLog. Append failures are
// logged and otherwise ignored. A zero Timeout means DefaultWriteTimeout.
type LogBroadcaster struct {
	Log     EventLog
	Timeout time.Duration
}

func (b LogBroadcaster) Broadcast(event Event) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := b.Log.Append(ctx, event); err != nil {
		slog.Warn("failed to append status event", "subjectID", event.SubjectID, "error", err)
	}
}

var _ Broadcaster = LogBroadcaster{}

// PrintingEventLog writes events to the debug log.
type PrintingEventLog struct{}

func (PrintingEventLog) Append(ctx context.Context, events ...Event) error {
	for _, e := range events {
		slog.DebugContext(ctx, "status event",
			slog.String("subjectID", e.SubjectID),
			slog.String("status", string(e.Status)),
		)
	}
	return nil
}

var _ EventLog = PrintingEventLog{}

// RedisEventLog appends events to a capped Redis stream.
type RedisEventLog struct {
	client *redis.Client
	maxLen int64
	now    func() time.Time
}

func NewRedisEventLog(client *redis.Client, maxLen int64) *RedisEventLog {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &RedisEventLog{client: client, maxLen: maxLen, now: time.Now}
}

func (l *RedisEventLog) Append(ctx context.Context, events ...Event) error {
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range events {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: StreamKey,
				MaxLen: l.maxLen,
				Approx: true,
				Values: map[string]any{
					"id":     e.SubjectID,
					"status": string(e.Status),
					"at":     l.now().UTC().Format(time.RFC3339Nano),
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append status events: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest events, oldest first.
func (l *RedisEventLog) Recent(ctx context.Context, n int64) ([]LoggedEvent, error) {
	msgs, err := l.client.XRevRangeN(ctx, StreamKey, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read status events: %w", err)
	}
	slices.Reverse(msgs)

	events := make([]LoggedEvent, 0, len(msgs))
	for _, msg := range msgs {
		e := LoggedEvent{ID: msg.ID}
		e.SubjectID, _ = msg.Values["id"].(string)
		if st, ok := msg.Values["status"].(string); ok {
			e.Status = Status(st)
		}
		if at, ok := msg.Values["at"].(string); ok {
			e.At, _ = time.Parse(time.RFC3339Nano, at)
		}
		events = append(events, e)
	}
	return events, nil
}

var _ EventLog = (*RedisEventLog)(nil)
