package status_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/google/go-cmp/cmp"
)

func TestFromPresence(t *testing.T) {
	tc := []struct {
		name  string
		input discordgo.Status
		want  status.Status
	}{
		{name: "absent status is offline", input: "", want: status.StatusOffline},
		{name: "invisible is offline", input: discordgo.StatusInvisible, want: status.StatusOffline},
		{name: "offline", input: discordgo.StatusOffline, want: status.StatusOffline},
		{name: "online", input: discordgo.StatusOnline, want: status.StatusOnline},
		{name: "idle", input: discordgo.StatusIdle, want: status.StatusIdle},
		{name: "do not disturb", input: discordgo.StatusDoNotDisturb, want: status.StatusDND},
		{name: "unknown values pass through", input: "streaming", want: status.Status("streaming")},
	}

	for _, testCase := range tc {
		t.Run(testCase.name, func(t *testing.T) {
			if got := status.FromPresence(testCase.input); got != testCase.want {
				t.Errorf("FromPresence(%q) = %q, want %q", testCase.input, got, testCase.want)
			}
		})
	}
}

func TestNotInVoiceKeepsWireValue(t *testing.T) {
	if status.StatusNotInVoice != "headphones" {
		t.Errorf("StatusNotInVoice = %q, overlays expect %q", status.StatusNotInVoice, "headphones")
	}
}

type collector struct {
	events []status.Event
}

func (c *collector) Broadcast(e status.Event) { c.events = append(c.events, e) }

type failingStore struct{}

func (failingStore) Set(context.Context, status.Event) error {
	return errors.New("store unavailable")
}

func (failingStore) All(context.Context) (map[string]status.Status, error) {
	return nil, errors.New("store unavailable")
}

func TestRecorder(t *testing.T) {
	t.Run("records then forwards", func(t *testing.T) {
		store := status.NewMemoryStore()
		next := &collector{}
		rec := status.NewRecorder(store, next)

		rec.Broadcast(status.Event{SubjectID: "1", Status: status.StatusSpeaking})
		rec.Broadcast(status.Event{SubjectID: "2", Status: status.StatusMicOff})
		rec.Broadcast(status.Event{SubjectID: "1", Status: status.StatusNotSpeaking})

		got, err := store.All(t.Context())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[string]status.Status{"1": status.StatusNotSpeaking, "2": status.StatusMicOff}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
		}
		if len(next.events) != 3 {
			t.Errorf("expected 3 forwarded events, got %d", len(next.events))
		}
	})

	t.Run("a failing store does not stop delivery", func(t *testing.T) {
		next := &collector{}
		rec := status.NewRecorder(failingStore{}, next)

		rec.Broadcast(status.Event{SubjectID: "1", Status: status.StatusOnline})

		want := []status.Event{{SubjectID: "1", Status: status.StatusOnline}}
		if diff := cmp.Diff(want, next.events); diff != "" {
			t.Errorf("forwarded events mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFanout(t *testing.T) {
	a, b := &collector{}, &collector{}
	fan := status.Fanout{a, b}

	fan.Broadcast(status.Event{SubjectID: "42", Status: status.StatusIdle})

	want := []status.Event{{SubjectID: "42", Status: status.StatusIdle}}
	if diff := cmp.Diff(want, a.events); diff != "" {
		t.Errorf("first broadcaster mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, b.events); diff != "" {
		t.Errorf("second broadcaster mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreSnapshotIsACopy(t *testing.T) {
	store := status.NewMemoryStore()
	if err := store.Set(t.Context(), status.Event{SubjectID: "1", Status: status.StatusOnline}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, _ := store.All(t.Context())
	snapshot["1"] = status.StatusOffline

	again, _ := store.All(t.Context())
	if again["1"] != status.StatusOnline {
		t.Errorf("mutating a snapshot changed the store: got %q", again["1"])
	}
}

type failingLog struct {
	appended []status.Event
}

func (f *failingLog) Append(_ context.Context, events ...status.Event) error {
	f.appended = append(f.appended, events...)
	return errors.New("stream unavailable")
}

func TestLogBroadcasterSwallowsErrors(t *testing.T) {
	log := &failingLog{}
	b := status.Fanout{status.LogBroadcaster{Log: log}, status.LogBroadcaster{Log: status.PrintingEventLog{}}}

	event := status.Event{SubjectID: "1", Status: status.StatusIdle}
	b.Broadcast(event)

	if diff := cmp.Diff([]status.Event{event}, log.appended); diff != "" {
		t.Errorf("appended mismatch (-want +got):\n%s", diff)
	}
}
