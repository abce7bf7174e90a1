package voice_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/glizzus/voice-overlay/internal/voice"
)

func TestEnsureInVoiceIsIdempotentPerGuild(t *testing.T) {
	dialer := &fakeDialer{gate: make(chan struct{})}
	registry := voice.NewRegistry()
	manager := voice.NewManager(dialer, registry)

	channels := []voice.Channel{
		{ID: "c1", GuildID: "g1", Name: "General"},
		{ID: "c2", GuildID: "g1", Name: "Gaming"},
		{ID: "c1", GuildID: "g1", Name: "General"},
	}

	var wg sync.WaitGroup
	handles := make([]*voice.Connection, 30)
	for i := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i] = manager.EnsureInVoice(channels[i%len(channels)])
		}()
	}
	wg.Wait()
	close(dialer.gate)
	manager.Wait()

	if registry.Len() != 1 {
		t.Fatalf("expected exactly one handle for the guild, got %d", registry.Len())
	}
	for i, h := range handles {
		if h != handles[0] {
			t.Fatalf("call %d returned a different handle", i)
		}
	}
	if got := dialer.callCount(); got != 1 {
		t.Errorf("expected a single dial, got %d", got)
	}
	if handles[0].State() != voice.StateReady {
		t.Errorf("expected the handle to be ready, got %s", handles[0].State())
	}
}

func TestEnsureInVoiceDoesNotMigrateChannels(t *testing.T) {
	dialer := &fakeDialer{}
	manager := voice.NewManager(dialer, nil)

	first := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
	manager.Wait()
	second := manager.EnsureInVoice(voice.Channel{ID: "c2", GuildID: "g1"})
	manager.Wait()

	if first != second {
		t.Fatalf("expected the existing handle to be returned")
	}
	if got := second.Channel().ID; got != "c1" {
		t.Errorf("expected the bot to stay in c1, got %s", got)
	}
	if got := dialer.callCount(); got != 1 {
		t.Errorf("expected a single dial, got %d", got)
	}
}

func TestEnsureInVoiceSeparateGuilds(t *testing.T) {
	dialer := &fakeDialer{}
	registry := voice.NewRegistry()
	manager := voice.NewManager(dialer, registry)

	a := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
	b := manager.EnsureInVoice(voice.Channel{ID: "c9", GuildID: "g2"})
	manager.Wait()

	if a == b {
		t.Fatalf("expected distinct handles for distinct guilds")
	}
	if registry.Len() != 2 {
		t.Errorf("expected two handles, got %d", registry.Len())
	}
}

func TestFailedJoinLeavesNoHandleAndRetries(t *testing.T) {
	dialer := &fakeDialer{err: errDialFailed}
	registry := voice.NewRegistry()
	manager := voice.NewManager(dialer, registry)

	failed := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
	manager.Wait()

	if registry.Len() != 0 {
		t.Fatalf("expected no handle after a failed join, got %d", registry.Len())
	}
	if failed.State() != voice.StateClosed {
		t.Errorf("expected failed handle to be closed, got %s", failed.State())
	}

	dialer.setErr(nil)
	retried := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
	manager.Wait()

	if retried == failed {
		t.Errorf("expected a fresh handle on retry")
	}
	if got := dialer.callCount(); got != 2 {
		t.Errorf("expected two dials, got %d", got)
	}
	if retried.State() != voice.StateReady {
		t.Errorf("expected retried handle to be ready, got %s", retried.State())
	}
}

func TestReleaseVoice(t *testing.T) {
	t.Run("absent guild is reported", func(t *testing.T) {
		manager := voice.NewManager(&fakeDialer{}, nil)
		if err := manager.ReleaseVoice("g1"); !errors.Is(err, voice.ErrNotInVoice) {
			t.Errorf("expected ErrNotInVoice, got %v", err)
		}
	})

	t.Run("connected guild is disconnected and forgotten", func(t *testing.T) {
		dialer := &fakeDialer{}
		registry := voice.NewRegistry()
		manager := voice.NewManager(dialer, registry)

		conn := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
		manager.Wait()

		if err := manager.ReleaseVoice("g1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if registry.Len() != 0 {
			t.Errorf("expected no handles, got %d", registry.Len())
		}
		if conn.State() != voice.StateClosed {
			t.Errorf("expected closed handle, got %s", conn.State())
		}
		if got := dialer.links[0].disconnected.Load(); got != 1 {
			t.Errorf("expected one disconnect, got %d", got)
		}
	})

	t.Run("release during an in-flight join abandons the link", func(t *testing.T) {
		dialer := &fakeDialer{gate: make(chan struct{})}
		registry := voice.NewRegistry()
		manager := voice.NewManager(dialer, registry)

		conn := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
		if err := manager.ReleaseVoice("g1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(dialer.gate)
		manager.Wait()

		if conn.State() != voice.StateClosed {
			t.Errorf("expected closed handle, got %s", conn.State())
		}
		if got := dialer.links[0].disconnected.Load(); got != 1 {
			t.Errorf("expected the late link to be disconnected, got %d", got)
		}
		if registry.Len() != 0 {
			t.Errorf("expected no handles, got %d", registry.Len())
		}
	})
}

func TestForgetAndMoved(t *testing.T) {
	dialer := &fakeDialer{}
	registry := voice.NewRegistry()
	manager := voice.NewManager(dialer, registry)

	conn := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1", Name: "General"})
	manager.Wait()

	manager.Moved("g1", "c2")
	if got := conn.Channel().ID; got != "c2" {
		t.Errorf("expected channel c2 after move, got %s", got)
	}

	manager.Forget("g1")
	if _, ok := manager.Connection("g1"); ok {
		t.Errorf("expected handle to be forgotten")
	}
	manager.Forget("g1")
}

func TestForgetKeepsRejoinInFlight(t *testing.T) {
	dialer := &fakeDialer{}
	registry := voice.NewRegistry()
	manager := voice.NewManager(dialer, registry)

	manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
	manager.Wait()
	if err := manager.ReleaseVoice("g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gate := make(chan struct{})
	dialer.mu.Lock()
	dialer.gate = gate
	dialer.mu.Unlock()
	rejoin := manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})

	// The disconnect for the released link arrives after the rejoin started.
	manager.Forget("g1")

	close(gate)
	manager.Wait()

	conn, ok := manager.Connection("g1")
	if !ok || conn != rejoin {
		t.Fatalf("expected the rejoined handle to survive a stale disconnect")
	}
	if rejoin.State() != voice.StateReady {
		t.Errorf("expected the rejoined handle to be ready, got %s", rejoin.State())
	}
}

func TestManagerClose(t *testing.T) {
	dialer := &fakeDialer{}
	registry := voice.NewRegistry()
	manager := voice.NewManager(dialer, registry)

	manager.EnsureInVoice(voice.Channel{ID: "c1", GuildID: "g1"})
	manager.EnsureInVoice(voice.Channel{ID: "c2", GuildID: "g2"})
	manager.Wait()
	manager.Close()

	if registry.Len() != 0 {
		t.Errorf("expected all handles released, got %d", registry.Len())
	}
}
