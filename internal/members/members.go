// Package members lists guild members for the overlay setup pages.
package members

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/voice"
)

const pageSize = 1000

// State is the slice of *discordgo.State the directory reads from.
type State interface {
	RLock()
	RUnlock()
	Guild(guildID string) (*discordgo.Guild, error)
	Channel(channelID string) (*discordgo.Channel, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Presence(guildID, userID string) (*discordgo.Presence, error)
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
}

var _ State = (*discordgo.State)(nil)

// Lister pages through a guild's members over REST.
type Lister interface {
	GuildMembers(guildID, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

var _ Lister = (*discordgo.Session)(nil)

type ChannelMember struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Avatar   string        `json:"avatar"`
	Bot      bool          `json:"bot"`
	Status   status.Status `json:"status"`
}

type Channel struct {
	ChannelID   string          `json:"channelId,omitempty"`
	ChannelName string          `json:"channelName,omitempty"`
	Members     []ChannelMember `json:"members"`
}

type GuildMember struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Avatar   string        `json:"avatar"`
	Status   status.Status `json:"status"`
}

type Directory struct {
	guildID string
	bot     *voice.Identity
	state   State
	lister  Lister
}

func NewDirectory(guildID string, bot *voice.Identity, state State, lister Lister) *Directory {
	return &Directory{guildID: guildID, bot: bot, state: state, lister: lister}
}

// InChannel lists the people in a voice channel, leaving out bots. An empty
// channelID means the channel the bot is in. Unknown guilds and channels
// yield an empty list.
func (d *Directory) InChannel(_ context.Context, channelID string) (Channel, error) {
	empty := Channel{Members: []ChannelMember{}}

	guild, err := d.state.Guild(d.guildID)
	if err != nil {
		return empty, nil
	}

	if channelID == "" {
		vs, err := d.state.VoiceState(d.guildID, d.bot.ID())
		if err != nil || vs.ChannelID == "" {
			return empty, nil
		}
		channelID = vs.ChannelID
	}

	channel, err := d.state.Channel(channelID)
	if err != nil || channel.GuildID != d.guildID {
		return empty, nil
	}

	d.state.RLock()
	var userIDs []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			userIDs = append(userIDs, vs.UserID)
		}
	}
	d.state.RUnlock()
	slices.Sort(userIDs)

	out := Channel{ChannelID: channel.ID, ChannelName: channel.Name, Members: []ChannelMember{}}
	for _, userID := range userIDs {
		if d.bot.Is(userID) {
			continue
		}
		member, err := d.state.Member(d.guildID, userID)
		if err != nil || member.User == nil || member.User.Bot {
			continue
		}
		out.Members = append(out.Members, ChannelMember{
			ID:       member.User.ID,
			Username: member.User.Username,
			Avatar:   member.User.AvatarURL("128"),
			Bot:      member.User.Bot,
			Status:   d.presence(userID),
		})
	}
	return out, nil
}

// All fetches every member of the guild.
func (d *Directory) All(ctx context.Context) ([]GuildMember, error) {
	var out []GuildMember
	after := ""
	for {
		page, err := d.lister.GuildMembers(d.guildID, after, pageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch guild members: %w", err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, GuildMember{
				ID:       m.User.ID,
				Username: m.User.Username,
				Avatar:   m.User.AvatarURL("64"),
				Status:   d.presence(m.User.ID),
			})
		}
		if len(page) < pageSize || page[len(page)-1].User == nil {
			break
		}
		after = page[len(page)-1].User.ID
	}
	if out == nil {
		out = []GuildMember{}
	}
	return out, nil
}

func (d *Directory) presence(userID string) status.Status {
	p, err := d.state.Presence(d.guildID, userID)
	if err != nil {
		return status.StatusOffline
	}
	return status.FromPresence(p.Status)
}
