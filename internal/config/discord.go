package config

import (
	"context"
	"fmt"
	"time"

	"github.com/glizzus/voice-overlay/internal/schedule"
	"github.com/sethvargo/go-envconfig"
)

type DiscordConfig struct {
	Token    string `env:"DISCORD_TOKEN, required"`
	GuildID  string `env:"DISCORD_GUILD_ID, required"`
	ClientID string `env:"DISCORD_CLIENT_ID"`
	// BotID hides the bot from overlays before the gateway reports it.
	BotID string `env:"DISCORD_BOT_ID"`

	MemberRefreshCron string        `env:"DISCORD_MEMBER_REFRESH_CRON, default=*/30 * * * *"`
	SilenceTimeout    time.Duration `env:"DISCORD_SILENCE_TIMEOUT, default=100ms"`
}

func NewDiscordConfig(ctx context.Context, lookuper envconfig.Lookuper) (*DiscordConfig, error) {
	var cfg DiscordConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	if cfg.MemberRefreshCron != "" {
		if err := schedule.ValidateCron(cfg.MemberRefreshCron); err != nil {
			return nil, fmt.Errorf("DISCORD_MEMBER_REFRESH_CRON: %w", err)
		}
	}
	if cfg.SilenceTimeout <= 0 {
		return nil, fmt.Errorf("DISCORD_SILENCE_TIMEOUT must be positive, got %s", cfg.SilenceTimeout)
	}
	return &cfg, nil
}

func NewDiscordConfigFromEnv() (*DiscordConfig, error) {
	return NewDiscordConfig(context.Background(), nil)
}
