package voice

import (
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// Channel describes a voice channel the bot may join.
type Channel struct {
	ID      string
	GuildID string
	Name    string
}

// Link is a live audio session in one voice channel.
type Link interface {
	OnSpeakingUpdate(fn func(userID string, ssrc uint32, speaking bool))
	Packets() <-chan *discordgo.Packet
	Disconnect() error
}

// Dialer opens a Link to a voice channel.
type Dialer interface {
	Dial(channel Channel) (Link, error)
}

// SessionDialer joins voice channels through a gateway session.
type SessionDialer struct {
	Session *discordgo.Session
}

// Dial joins the channel self-muted but not deafened; a deafened bot receives
// no audio and could never see anybody speak.
func (d *SessionDialer) Dial(channel Channel) (Link, error) {
	vc, err := d.Session.ChannelVoiceJoin(channel.GuildID, channel.ID, true, false)
	if err != nil {
		return nil, fmt.Errorf("unable to join the voice channel: %w", err)
	}
	return &sessionLink{vc: vc}, nil
}

var _ Dialer = (*SessionDialer)(nil)

type sessionLink struct {
	vc *discordgo.VoiceConnection
}

func (l *sessionLink) OnSpeakingUpdate(fn func(userID string, ssrc uint32, speaking bool)) {
	l.vc.AddHandler(func(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
		fn(vs.UserID, uint32(vs.SSRC), vs.Speaking)
	})
}

func (l *sessionLink) Packets() <-chan *discordgo.Packet {
	return l.vc.OpusRecv
}

func (l *sessionLink) Disconnect() error {
	return l.vc.Disconnect()
}

var _ Link = (*sessionLink)(nil)

// Identity is the bot's own user id. It is usually learned from the Ready
// event, after handlers that need it have already been built.
type Identity struct {
	id atomic.Value
}

func NewIdentity(id string) *Identity {
	i := &Identity{}
	i.Set(id)
	return i
}

func (i *Identity) Set(id string) {
	i.id.Store(id)
}

func (i *Identity) ID() string {
	id, _ := i.id.Load().(string)
	return id
}

// Is reports whether userID is the bot. It is false while the id is unknown.
func (i *Identity) Is(userID string) bool {
	id := i.ID()
	return id != "" && id == userID
}
