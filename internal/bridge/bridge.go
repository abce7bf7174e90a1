// Package bridge turns Discord presence and voice-state updates into overlay
// status events and keeps the bot in the voice channel people are using.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/telemetry"
	"github.com/glizzus/voice-overlay/internal/voice"
)

const inboxSize = 256

// Voice is the part of the voice manager the bridge drives.
type Voice interface {
	EnsureInVoice(channel voice.Channel) *voice.Connection
	Forget(guildID string)
	Moved(guildID, channelID string)
}

// Attacher registers speaking detection on a connection.
type Attacher interface {
	Attach(conn *voice.Connection) (voice.Token, error)
}

// Directory resolves guild members and channels. *discordgo.State satisfies it.
type Directory interface {
	Channel(channelID string) (*discordgo.Channel, error)
	Member(guildID, userID string) (*discordgo.Member, error)
}

var _ Directory = (*discordgo.State)(nil)

type Config struct {
	// Bot is the bot's own identity. Its voice states are bookkeeping only.
	Bot *voice.Identity
	// GuildID restricts the bridge to one guild when set.
	GuildID string
}

type Bridge struct {
	cfg       Config
	voice     Voice
	attacher  Attacher
	directory Directory
	out       status.Broadcaster

	inbox chan any
	done  chan struct{}
}

func New(cfg Config, v Voice, attacher Attacher, directory Directory, out status.Broadcaster) *Bridge {
	if cfg.Bot == nil {
		cfg.Bot = voice.NewIdentity("")
	}
	return &Bridge{
		cfg:       cfg,
		voice:     v,
		attacher:  attacher,
		directory: directory,
		out:       out,
		inbox:     make(chan any, inboxSize),
		done:      make(chan struct{}),
	}
}

// Run handles queued updates one at a time, in the order they arrived, until
// ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	defer close(b.done)

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-b.inbox:
			b.dispatch(update)
		}
	}
}

// HandlePresenceUpdate queues a presence update. It is a discordgo handler.
func (b *Bridge) HandlePresenceUpdate(_ *discordgo.Session, p *discordgo.PresenceUpdate) {
	b.enqueue(p)
}

// HandleVoiceStateUpdate queues a voice-state update. It is a discordgo handler.
func (b *Bridge) HandleVoiceStateUpdate(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	b.enqueue(vs)
}

func (b *Bridge) enqueue(update any) {
	select {
	case b.inbox <- update:
	case <-b.done:
	}
}

func (b *Bridge) dispatch(update any) {
	switch u := update.(type) {
	case *discordgo.PresenceUpdate:
		b.OnPresence(u)
	case *discordgo.VoiceStateUpdate:
		b.OnVoiceState(u)
	default:
		slog.Warn("unexpected bridge update", "type", fmt.Sprintf("%T", update))
	}
}

// OnPresence emits the subject's presence as a status event. Presence is
// per user rather than per guild, so updates from every guild are emitted.
func (b *Bridge) OnPresence(p *discordgo.PresenceUpdate) {
	defer b.recoverPanic("presence")

	if p == nil || p.User == nil || p.User.ID == "" {
		return
	}
	telemetry.IncBridgeUpdate("presence")

	b.out.Broadcast(status.Event{
		SubjectID: p.User.ID,
		Status:    status.FromPresence(p.Status),
	})
}

// OnVoiceState reacts to a subject joining, leaving, muting or unmuting.
//
// A subject that left voice is reported as not in voice and a muted or
// deafened one as mic-off. Anybody else in a channel pulls the bot into that
// channel and makes sure speaking detection is attached; their speaking edges
// arrive through the listener, not from here.
func (b *Bridge) OnVoiceState(vs *discordgo.VoiceStateUpdate) {
	defer b.recoverPanic("voice_state")

	if vs == nil || vs.VoiceState == nil {
		return
	}
	if !b.inGuild(vs.GuildID) {
		return
	}
	telemetry.IncBridgeUpdate("voice_state")

	if b.cfg.Bot.Is(vs.UserID) {
		b.trackSelf(vs.VoiceState)
		return
	}

	member := b.member(vs.VoiceState)
	if member == nil || member.User == nil {
		slog.Debug("ignoring voice state for unknown member", "guildID", vs.GuildID, "userID", vs.UserID)
		return
	}
	if member.User.Bot {
		return
	}
	userID := member.User.ID

	if vs.ChannelID == "" {
		b.out.Broadcast(status.Event{SubjectID: userID, Status: status.StatusNotInVoice})
		return
	}
	if vs.SelfMute || vs.SelfDeaf || vs.Mute || vs.Deaf {
		b.out.Broadcast(status.Event{SubjectID: userID, Status: status.StatusMicOff})
		return
	}

	conn := b.voice.EnsureInVoice(b.channel(vs.GuildID, vs.ChannelID))
	if _, err := b.attacher.Attach(conn); err != nil {
		slog.Warn("speaking detection unavailable", "guildID", vs.GuildID, "channelID", vs.ChannelID, "error", err)
	}
}

func (b *Bridge) trackSelf(vs *discordgo.VoiceState) {
	if vs.ChannelID == "" {
		b.voice.Forget(vs.GuildID)
		return
	}
	b.voice.Moved(vs.GuildID, vs.ChannelID)
}

func (b *Bridge) member(vs *discordgo.VoiceState) *discordgo.Member {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member
	}
	if b.directory == nil {
		return nil
	}
	member, err := b.directory.Member(vs.GuildID, vs.UserID)
	if err != nil {
		return nil
	}
	return member
}

func (b *Bridge) channel(guildID, channelID string) voice.Channel {
	ch := voice.Channel{ID: channelID, GuildID: guildID}
	if b.directory == nil {
		return ch
	}
	if c, err := b.directory.Channel(channelID); err == nil {
		ch.Name = c.Name
	}
	return ch
}

func (b *Bridge) inGuild(guildID string) bool {
	return b.cfg.GuildID == "" || guildID == "" || guildID == b.cfg.GuildID
}

func (b *Bridge) recoverPanic(kind string) {
	if r := recover(); r != nil {
		slog.Error("panic while handling update", "kind", kind, "panic", r)
	}
}
