package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "join",
		Description: "Bring the bot into your voice channel",
	},
	{
		Name:        "leave",
		Description: "Make the bot leave its voice channel",
	},
	{
		Name:        "ping",
		Description: "Check that the bot is alive",
	},
}

// CommandRegistrar is the part of *discordgo.Session that registers commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

var _ CommandRegistrar = (*discordgo.Session)(nil)

// EstablishCommands replaces the application's commands. An empty guildID
// registers them globally.
func EstablishCommands(s CommandRegistrar, appID, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
