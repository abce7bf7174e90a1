package presenters

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func message(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	}
}

var PongResponse = message("Pong!")

var LeftResponse = message("👋 Left the voice channel")

var NotInVoiceResponse = message("❌ The bot is not in a voice channel")

// InternalErrorResponse is shown only to the caller.
var InternalErrorResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseChannelMessageWithSource,
	Data: &discordgo.InteractionResponseData{
		Content: "Something went wrong, please try again.",
		Flags:   discordgo.MessageFlagsEphemeral,
	},
}

func BuildJoinedResponse(channelName string) *discordgo.InteractionResponse {
	if channelName == "" {
		return message("✅ Joined the voice channel")
	}
	return message(fmt.Sprintf("✅ Joined %s", channelName))
}

func BuildUserErrorResponse(msg string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
