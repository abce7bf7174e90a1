package presenters_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/presenters"
	"github.com/google/go-cmp/cmp"
)

func TestBuildJoinedResponse(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    *discordgo.InteractionResponse
	}{
		{
			name:    "named channel",
			channel: "General",
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "✅ Joined General",
				},
			},
		},
		{
			name:    "unknown channel name",
			channel: "",
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "✅ Joined the voice channel",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.BuildJoinedResponse(tt.channel)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildUserErrorResponse(t *testing.T) {
	want := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "nope",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
	if diff := cmp.Diff(want, presenters.BuildUserErrorResponse("nope")); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}
