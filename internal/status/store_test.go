package status_test

import (
	"context"
	"testing"

	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := t.Context()
	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate redis container: %v", err)
		}
	})

	uri, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	ctx := t.Context()
	store := status.NewRedisStore(newRedisClient(t))

	events := []status.Event{
		{SubjectID: "100", Status: status.StatusSpeaking},
		{SubjectID: "200", Status: status.StatusNotInVoice},
		{SubjectID: "100", Status: status.StatusNotSpeaking},
	}
	for _, e := range events {
		if err := store.Set(ctx, e); err != nil {
			t.Fatalf("failed to set status: %v", err)
		}
	}

	got, err := store.All(ctx)
	if err != nil {
		t.Fatalf("failed to read statuses: %v", err)
	}
	want := map[string]status.Status{
		"100": status.StatusNotSpeaking,
		"200": status.StatusNotInVoice,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisEventLog(t *testing.T) {
	ctx := t.Context()
	log := status.NewRedisEventLog(newRedisClient(t), 3)

	events := []status.Event{
		{SubjectID: "1", Status: status.StatusSpeaking},
		{SubjectID: "1", Status: status.StatusNotSpeaking},
		{SubjectID: "2", Status: status.StatusMicOff},
	}
	if err := log.Append(ctx, events...); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	status.LogBroadcaster{Log: log}.Broadcast(status.Event{SubjectID: "2", Status: status.StatusNotInVoice})

	got, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	var gotEvents []status.Event
	for _, e := range got {
		if e.ID == "" || e.At.IsZero() {
			t.Errorf("expected stream id and time on %+v", e)
		}
		gotEvents = append(gotEvents, e.Event)
	}
	want := []status.Event{
		{SubjectID: "2", Status: status.StatusMicOff},
		{SubjectID: "2", Status: status.StatusNotInVoice},
	}
	if diff := cmp.Diff(want, gotEvents); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
