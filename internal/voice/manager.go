package voice

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/glizzus/voice-overlay/internal/telemetry"
)

var ErrNotInVoice = errors.New("bot is not in a voice channel")

type Manager struct {
	dialer         Dialer
	registry       *Registry
	silenceTimeout time.Duration

	dials sync.WaitGroup
}

type ManagerOption func(*Manager)

// WithSilenceTimeout sets the gap after which a speaker is considered silent.
func WithSilenceTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.silenceTimeout = d
	}
}

func NewManager(dialer Dialer, registry *Registry, opts ...ManagerOption) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	m := &Manager{
		dialer:         dialer,
		registry:       registry,
		silenceTimeout: DefaultSilenceTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureInVoice returns the guild's connection, creating one bound to channel
// if there is none. An existing connection is returned unchanged even when it
// is in a different channel of the guild.
//
// The join itself runs in the background. If it fails the handle is dropped
// from the registry, so the next call starts a fresh attempt.
func (m *Manager) EnsureInVoice(channel Channel) *Connection {
	conn, created := m.registry.GetOrCreate(channel.GuildID, func() *Connection {
		return newConnection(channel, m.silenceTimeout)
	})
	if created {
		slog.Info("joining voice channel",
			"guildID", channel.GuildID,
			"channelID", channel.ID,
			"channelName", channel.Name,
		)
		m.dials.Add(1)
		go m.connect(conn, channel)
	}
	return conn
}

func (m *Manager) connect(conn *Connection, channel Channel) {
	defer m.dials.Done()

	link, err := m.dialer.Dial(channel)
	if err != nil {
		slog.Error("failed to join voice channel",
			"guildID", channel.GuildID,
			"channelID", channel.ID,
			"error", err,
		)
		telemetry.IncVoiceJoin("failed")
		m.registry.Remove(channel.GuildID, conn)
		if cerr := conn.close(); cerr != nil {
			slog.Warn("failed to close voice connection", "guildID", channel.GuildID, "error", cerr)
		}
		return
	}

	if !conn.bind(link) {
		// Released while the dial was in flight.
		telemetry.IncVoiceJoin("abandoned")
		if err := link.Disconnect(); err != nil {
			slog.Warn("failed to disconnect abandoned voice link", "guildID", channel.GuildID, "error", err)
		}
		return
	}

	telemetry.IncVoiceJoin("ok")
	slog.Info("bot joined voice channel",
		"guildID", channel.GuildID,
		"channelID", channel.ID,
		"channelName", channel.Name,
	)
}

// ReleaseVoice disconnects the bot from the guild's voice channel.
func (m *Manager) ReleaseVoice(guildID string) error {
	conn := m.registry.Remove(guildID, nil)
	if conn == nil {
		slog.Info("no voice connection to release", "guildID", guildID)
		return ErrNotInVoice
	}
	if err := conn.close(); err != nil {
		slog.Warn("failed to disconnect from voice", "guildID", guildID, "error", err)
	}
	slog.Info("bot left voice channel", "guildID", guildID)
	return nil
}

// Forget drops the guild's handle after the platform disconnected the bot.
// A handle that is still connecting belongs to a newer join than the link
// that was disconnected, so it is kept.
func (m *Manager) Forget(guildID string) {
	current, ok := m.registry.Get(guildID)
	if !ok {
		return
	}
	if current.State() == StateConnecting {
		slog.Debug("ignoring stale voice disconnect", "guildID", guildID)
		return
	}
	conn := m.registry.Remove(guildID, current)
	if conn == nil {
		return
	}
	if err := conn.close(); err != nil {
		slog.Warn("failed to clean up voice connection", "guildID", guildID, "error", err)
	}
	slog.Info("voice connection closed by the platform", "guildID", guildID)
}

// Moved records that the platform moved the bot to another channel.
func (m *Manager) Moved(guildID, channelID string) {
	if conn, ok := m.registry.Get(guildID); ok {
		conn.setChannelID(channelID)
	}
}

func (m *Manager) Connection(guildID string) (*Connection, bool) {
	return m.registry.Get(guildID)
}

// Wait blocks until every in-flight join attempt has finished.
func (m *Manager) Wait() {
	m.dials.Wait()
}

// Close releases every connection.
func (m *Manager) Close() {
	for _, conn := range m.registry.All() {
		if err := m.ReleaseVoice(conn.GuildID()); err != nil && !errors.Is(err, ErrNotInVoice) {
			slog.Warn("failed to release voice", "guildID", conn.GuildID(), "error", err)
		}
	}
}
