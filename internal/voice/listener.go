package voice

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/telemetry"
)

var ErrConnectionClosed = errors.New("voice connection is closed")

// SpeakingListener translates a connection's speaking edges into status
// events. It keeps exactly one registration per connection: attaching again
// replaces its own previous registration through the token it was given and
// leaves other registrations on the receiver alone.
type SpeakingListener struct {
	bot *Identity
	out status.Broadcaster

	mu     sync.Mutex
	tokens map[*Connection]Token
}

func NewSpeakingListener(bot *Identity, out status.Broadcaster) *SpeakingListener {
	return &SpeakingListener{
		bot:    bot,
		out:    out,
		tokens: make(map[*Connection]Token),
	}
}

// Attach (re)registers the listener pair on conn. Failures are logged and
// returned; the caller is expected to carry on without speaking detection
// until the next attach.
func (l *SpeakingListener) Attach(conn *Connection) (tok Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speaking listener attach panicked: %v", r)
		}
		if err != nil {
			telemetry.IncListenerAttach("failed")
			slog.Error("failed to attach speaking listener", "error", err)
			return
		}
		telemetry.IncListenerAttach("ok")
	}()

	if conn == nil {
		return 0, errors.New("no voice connection to attach to")
	}
	if conn.State() == StateClosed {
		return 0, fmt.Errorf("guild %s: %w", conn.GuildID(), ErrConnectionClosed)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked()

	receiver := conn.Receiver()
	if prev, ok := l.tokens[conn]; ok {
		receiver.Unregister(prev)
	}
	tok = receiver.Register(Listener{
		Start: l.emitter(status.StatusSpeaking),
		End:   l.emitter(status.StatusNotSpeaking),
	})
	l.tokens[conn] = tok

	slog.Info("listening for speaking events", "guildID", conn.GuildID())
	return tok, nil
}

// Detach removes the listener from conn, if attached.
func (l *SpeakingListener) Detach(conn *Connection) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	tok, ok := l.tokens[conn]
	if !ok {
		return false
	}
	delete(l.tokens, conn)
	return conn.Receiver().Unregister(tok)
}

func (l *SpeakingListener) pruneLocked() {
	for conn := range l.tokens {
		if conn.State() == StateClosed {
			delete(l.tokens, conn)
		}
	}
}

func (l *SpeakingListener) emitter(st status.Status) SpeakingFunc {
	return func(userID string) {
		if l.bot.Is(userID) {
			return
		}
		l.out.Broadcast(status.Event{SubjectID: userID, Status: st})
	}
}
