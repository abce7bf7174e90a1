package handler

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/voice"
)

// DiscordSession is the part of *discordgo.Session that command handlers use.
type DiscordSession interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error
}

var _ DiscordSession = (*discordgo.Session)(nil)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)
type PresenceUpdateHandler = func(*discordgo.Session, *discordgo.PresenceUpdate)
type VoiceStateUpdateHandler = func(*discordgo.Session, *discordgo.VoiceStateUpdate)

// Intents covers guild structure, members with their presences, and voice states.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildPresences |
	discordgo.IntentsGuildVoiceStates

// MemberRequester asks the gateway for a guild's member list.
type MemberRequester interface {
	RequestGuildMembers(guildID, query string, limit int, nonce string, presences bool) error
}

var _ MemberRequester = (*discordgo.Session)(nil)

// RequestMembers fills the state cache with every member of the guild and
// their presences. The members arrive later as GuildMembersChunk events.
func RequestMembers(r MemberRequester, guildID string) error {
	if err := r.RequestGuildMembers(guildID, "", 0, "", true); err != nil {
		return fmt.Errorf("failed to request guild members: %w", err)
	}
	return nil
}

// MakeReadyHandler records the bot's own id and requests the member list of
// guildID once the gateway is ready.
func MakeReadyHandler(bot *voice.Identity, guildID string) ReadyHandler {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		ReadyLog(s, r)

		if bot.ID() == "" {
			bot.Set(r.User.ID)
		} else if !bot.Is(r.User.ID) {
			slog.Warn("configured bot id does not match the logged in user",
				"configured", bot.ID(), "userID", r.User.ID)
		}

		if guildID == "" {
			return
		}
		if err := RequestMembers(s, guildID); err != nil {
			slog.Error("Failed to fetch guild members", "guildID", guildID, "error", err)
			return
		}
		slog.Info("Requested guild members", "guildID", guildID)
	}
}

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID, "guilds", len(r.Guilds))
}

type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionCreateHandler
	PresenceUpdate    PresenceUpdateHandler
	VoiceStateUpdate  VoiceStateUpdateHandler
}

// NewSession builds a gateway session with the overlay's intents. Events are
// dispatched synchronously so handlers observe them in gateway order.
func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	s.Identify.Intents = Intents
	s.SyncEvents = true
	s.StateEnabled = true

	if handlers.Ready != nil {
		s.AddHandler(handlers.Ready)
	}
	if handlers.InteractionCreate != nil {
		s.AddHandler(handlers.InteractionCreate)
	}
	if handlers.PresenceUpdate != nil {
		s.AddHandler(handlers.PresenceUpdate)
	}
	if handlers.VoiceStateUpdate != nil {
		s.AddHandler(handlers.VoiceStateUpdate)
	}

	return s, nil
}
