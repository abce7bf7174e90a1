package config_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/glizzus/voice-overlay/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/sethvargo/go-envconfig"
)

func TestNewDiscordConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *config.DiscordConfig
		wantErr bool
	}{
		{
			name: "defaults",
			env:  map[string]string{"DISCORD_TOKEN": "t", "DISCORD_GUILD_ID": "g"},
			want: &config.DiscordConfig{
				Token:             "t",
				GuildID:           "g",
				MemberRefreshCron: "*/30 * * * *",
				SilenceTimeout:    100 * time.Millisecond,
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"DISCORD_TOKEN":               "t",
				"DISCORD_GUILD_ID":            "g",
				"DISCORD_BOT_ID":              "b",
				"DISCORD_CLIENT_ID":           "c",
				"DISCORD_MEMBER_REFRESH_CRON": "0 * * * *",
				"DISCORD_SILENCE_TIMEOUT":     "250ms",
			},
			want: &config.DiscordConfig{
				Token:             "t",
				GuildID:           "g",
				ClientID:          "c",
				BotID:             "b",
				MemberRefreshCron: "0 * * * *",
				SilenceTimeout:    250 * time.Millisecond,
			},
		},
		{
			name:    "missing token",
			env:     map[string]string{"DISCORD_GUILD_ID": "g"},
			wantErr: true,
		},
		{
			name:    "missing guild",
			env:     map[string]string{"DISCORD_TOKEN": "t"},
			wantErr: true,
		},
		{
			name:    "invalid cron",
			env:     map[string]string{"DISCORD_TOKEN": "t", "DISCORD_GUILD_ID": "g", "DISCORD_MEMBER_REFRESH_CRON": "whenever"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.NewDiscordConfig(context.Background(), envconfig.MapLookuper(tt.env))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewHTTPConfig(t *testing.T) {
	got, err := config.NewHTTPConfig(context.Background(), envconfig.MapLookuper(map[string]string{
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &config.HTTPConfig{
		Port:               3000,
		StaticDir:          ".",
		CORSAllowedOrigins: []string{"https://a.example", "https://b.example"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if got.Addr() != ":3000" {
		t.Errorf("expected :3000, got %s", got.Addr())
	}

	if _, err := config.NewHTTPConfig(context.Background(), envconfig.MapLookuper(map[string]string{"PORT": "0"})); err == nil {
		t.Errorf("expected error for port 0")
	}
}

func TestNewAvatarConfig(t *testing.T) {
	got, err := config.NewAvatarConfig(context.Background(), envconfig.MapLookuper(map[string]string{
		"UPLOAD_DIR": "/srv/uploads",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &config.AvatarConfig{
		Storage:   config.AvatarStorageDisk,
		UploadDir: "/srv/uploads",
		MetaPath:  filepath.Join("/srv/uploads", "meta.json"),
		MaxBytes:  8 << 20,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	if _, err := config.NewAvatarConfig(context.Background(), envconfig.MapLookuper(map[string]string{"AVATAR_STORAGE": "s3"})); err == nil {
		t.Errorf("expected error for unknown storage")
	}
}

func TestRedisConfigEnabled(t *testing.T) {
	cfg, err := config.NewRedisConfig(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Enabled() {
		t.Errorf("expected redis to be disabled without REDIS_ADDR")
	}
	if cfg.StreamMaxLen != 10000 {
		t.Errorf("expected default stream cap 10000, got %d", cfg.StreamMaxLen)
	}

	cfg, err = config.NewRedisConfig(context.Background(), envconfig.MapLookuper(map[string]string{
		"REDIS_ADDR": "localhost:6379",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Enabled() {
		t.Errorf("expected redis to be enabled with REDIS_ADDR")
	}
}

func TestMinioConfigRequiresEndpoint(t *testing.T) {
	if _, err := config.NewMinioConfig(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Errorf("expected error without MINIO_ENDPOINT")
	}
}

func TestMinioConfigEndpoint(t *testing.T) {
	tests := []struct {
		endpoint   string
		wantHost   string
		wantSecure bool
	}{
		{endpoint: "localhost:9000", wantHost: "localhost:9000"},
		{endpoint: "http://minio:9000/", wantHost: "minio:9000"},
		{endpoint: "https://s3.example.com", wantHost: "s3.example.com", wantSecure: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg, err := config.NewMinioConfig(context.Background(), envconfig.MapLookuper(map[string]string{
				"MINIO_ENDPOINT": tt.endpoint,
				"MINIO_USERNAME": "minio",
				"MINIO_PASSWORD": "minio123",
			}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Endpoint != tt.wantHost || cfg.Secure != tt.wantSecure {
				t.Errorf("got (%q, %v), want (%q, %v)", cfg.Endpoint, cfg.Secure, tt.wantHost, tt.wantSecure)
			}
			if cfg.Bucket != "voice-overlay" {
				t.Errorf("expected default bucket, got %q", cfg.Bucket)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: "warn", want: slog.LevelWarn},
		{level: "ERROR", want: slog.LevelError},
		{level: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := (&config.LoggingConfig{Level: tt.level}).SlogLevel()
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
