package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/presenters"
	"github.com/glizzus/voice-overlay/internal/voice"
)

// VoiceDirectory looks up voice states and channels. *discordgo.State satisfies it.
type VoiceDirectory interface {
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
	Channel(channelID string) (*discordgo.Channel, error)
}

var _ VoiceDirectory = (*discordgo.State)(nil)

type VoiceManager interface {
	EnsureInVoice(channel voice.Channel) *voice.Connection
	ReleaseVoice(guildID string) error
	Connection(guildID string) (*voice.Connection, bool)
}

type SpeakingAttacher interface {
	Attach(conn *voice.Connection) (voice.Token, error)
	Detach(conn *voice.Connection) bool
}

// VoiceCommands serves the join and leave commands.
type VoiceCommands struct {
	Directory VoiceDirectory
	Voice     VoiceManager
	Listener  SpeakingAttacher
}

var errNotInGuild = &UserError{Message: "❌ This command only works inside a server."}
var errCallerNotInVoice = &UserError{Message: "❌ You need to be in a voice channel first!"}

const errConnectionLost = "❌ The voice connection dropped before I could listen. Try /join again."

func callerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Join brings the bot into the caller's voice channel and starts speaking
// detection there.
func (c *VoiceCommands) Join(s DiscordSession, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" {
		return errNotInGuild
	}

	vs, err := c.Directory.VoiceState(i.GuildID, callerID(i))
	if err != nil || vs == nil || vs.ChannelID == "" {
		return errCallerNotInVoice
	}

	channel := voice.Channel{ID: vs.ChannelID, GuildID: i.GuildID}
	if ch, err := c.Directory.Channel(vs.ChannelID); err == nil {
		channel.Name = ch.Name
	}

	conn := c.Voice.EnsureInVoice(channel)
	if _, err := c.Listener.Attach(conn); err != nil {
		if errors.Is(err, voice.ErrConnectionClosed) {
			return &UserError{Message: errConnectionLost, Cause: err}
		}
		return fmt.Errorf("failed to attach speaking listener: %w", err)
	}

	name := conn.Channel().Name
	if name == "" {
		name = channel.Name
	}
	return s.InteractionRespond(i.Interaction, presenters.BuildJoinedResponse(name))
}

// Leave disconnects the bot from the guild's voice channel.
func (c *VoiceCommands) Leave(s DiscordSession, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" {
		return errNotInGuild
	}

	conn, _ := c.Voice.Connection(i.GuildID)
	err := c.Voice.ReleaseVoice(i.GuildID)
	if errors.Is(err, voice.ErrNotInVoice) {
		return s.InteractionRespond(i.Interaction, presenters.NotInVoiceResponse)
	}
	if err != nil {
		return fmt.Errorf("failed to leave voice: %w", err)
	}
	if conn != nil {
		c.Listener.Detach(conn)
	}

	slog.Info("Left voice on request", "guildID", i.GuildID, "userID", callerID(i))
	return s.InteractionRespond(i.Interaction, presenters.LeftResponse)
}

func Ping(s DiscordSession, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, presenters.PongResponse)
}

// NewInteractionHandler routes the bot's slash commands.
func NewInteractionHandler(cmds *VoiceCommands) func(DiscordSession, *discordgo.InteractionCreate) {
	router := NewCommandRouter()
	router.Register(&Route{ID: "ping", Matcher: CommandMatcher("ping"), Handler: Ping})
	if cmds != nil {
		router.Register(&Route{ID: "join", Matcher: CommandMatcher("join"), Handler: cmds.Join})
		router.Register(&Route{ID: "leave", Matcher: CommandMatcher("leave"), Handler: cmds.Leave})
	}
	return router.Handle
}
