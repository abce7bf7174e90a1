package status

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps the most recent status per subject.
type Store interface {
	Set(ctx context.Context, event Event) error
	All(ctx context.Context) (map[string]Status, error)
}

type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{statuses: make(map[string]Status)}
}

func (s *MemoryStore) Set(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[event.SubjectID] = event.Status
	return nil
}

func (s *MemoryStore) All(_ context.Context) (map[string]Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.statuses), nil
}

var _ Store = (*MemoryStore)(nil)

// RedisKey is the hash that holds subject -> status.
const RedisKey = "voice-overlay:status"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, event Event) error {
	if err := s.client.HSet(ctx, RedisKey, event.SubjectID, string(event.Status)).Err(); err != nil {
		return fmt.Errorf("failed to record status for %s: %w", event.SubjectID, err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) (map[string]Status, error) {
	raw, err := s.client.HGetAll(ctx, RedisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read statuses: %w", err)
	}
	statuses := make(map[string]Status, len(raw))
	for id, st := range raw {
		statuses[id] = Status(st)
	}
	return statuses, nil
}

var _ Store = (*RedisStore)(nil)

// DefaultWriteTimeout bounds a single Store or EventLog write.
const DefaultWriteTimeout = 2 * time.Second

// Recorder writes every event to a Store before handing it to the next
// Broadcaster. A failed or timed out write is logged; the event is still
// forwarded.
type Recorder struct {
	store   Store
	next    Broadcaster
	timeout time.Duration
}

type RecorderOption func(*Recorder)

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.timeout = d
	}
}

func NewRecorder(store Store, next Broadcaster, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, next: next, timeout: DefaultWriteTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Broadcast(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Set(ctx, event); err != nil {
		slog.Warn("failed to record status", "subjectID", event.SubjectID, "error", err)
	}
	r.next.Broadcast(event)
}

var _ Broadcaster = (*Recorder)(nil)
