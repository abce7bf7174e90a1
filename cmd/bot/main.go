package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/avatar"
	"github.com/glizzus/voice-overlay/internal/bridge"
	"github.com/glizzus/voice-overlay/internal/config"
	"github.com/glizzus/voice-overlay/internal/datalayer"
	"github.com/glizzus/voice-overlay/internal/generator"
	"github.com/glizzus/voice-overlay/internal/handler"
	"github.com/glizzus/voice-overlay/internal/httpapi"
	"github.com/glizzus/voice-overlay/internal/members"
	"github.com/glizzus/voice-overlay/internal/overlay"
	"github.com/glizzus/voice-overlay/internal/repository"
	"github.com/glizzus/voice-overlay/internal/schedule"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/telemetry"
	"github.com/glizzus/voice-overlay/internal/voice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func setupLogging() error {
	cfg, err := config.NewLoggingConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load logging config: %w", err)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// newStatusStores keeps statuses and the event log in Redis when REDIS_ADDR
// is set, and in process otherwise.
func newStatusStores(ctx context.Context) (status.Store, status.EventLog, error) {
	cfg, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load redis config: %w", err)
	}
	if !cfg.Enabled() {
		slog.Info("REDIS_ADDR not set, keeping statuses in memory")
		return status.NewMemoryStore(), status.PrintingEventLog{}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
	}
	slog.Info("Recording statuses in redis", "addr", cfg.Addr, "stream", status.StreamKey)
	return status.NewRedisStore(client), status.NewRedisEventLog(client, cfg.StreamMaxLen), nil
}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	if err := setupLogging(); err != nil {
		return err
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	httpConfig, err := config.NewHTTPConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load http config: %w", err)
	}
	avatarConfig, err := config.NewAvatarConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load avatar config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry.Init()

	store, eventLog, err := newStatusStores(ctx)
	if err != nil {
		return err
	}

	hub := overlay.NewHub(overlay.WithIDGenerator(&generator.UUIDV4Generator{}))
	go hub.Run(ctx)
	// Overlays come first; Redis writes happen off the event path.
	sink := status.NewQueue(status.NewRecorder(store, status.LogBroadcaster{Log: eventLog}), status.DefaultQueueSize)
	go sink.Run(ctx)
	broadcaster := status.Fanout{hub, sink}

	bot := voice.NewIdentity(discordConfig.BotID)
	listener := voice.NewSpeakingListener(bot, broadcaster)

	dialer := &voice.SessionDialer{}
	manager := voice.NewManager(dialer, voice.NewRegistry(), voice.WithSilenceTimeout(discordConfig.SilenceTimeout))

	// Both are built once the session exists; no events arrive before Open.
	var interactions func(handler.DiscordSession, *discordgo.InteractionCreate)
	var b *bridge.Bridge

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.MakeReadyHandler(bot, discordConfig.GuildID),
		InteractionCreate: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			interactions(s, i)
		},
		PresenceUpdate: func(s *discordgo.Session, p *discordgo.PresenceUpdate) {
			b.HandlePresenceUpdate(s, p)
		},
		VoiceStateUpdate: func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
			b.HandleVoiceStateUpdate(s, vs)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	dialer.Session = session

	b = bridge.New(bridge.Config{Bot: bot, GuildID: discordConfig.GuildID}, manager, listener, session.State, broadcaster)
	go b.Run(ctx)

	interactions = handler.NewInteractionHandler(&handler.VoiceCommands{
		Directory: session.State,
		Voice:     manager,
		Listener:  listener,
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		manager.Close()
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	appID := discordConfig.ClientID
	if appID == "" {
		appID = session.State.User.ID
	}
	if err := handler.EstablishCommands(session, appID, discordConfig.GuildID); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	slog.Info("Slash commands registered", "appID", appID, "guildID", discordConfig.GuildID)

	go refreshMembers(ctx, session, discordConfig)

	blobs, err := datalayer.NewBlobStorage(ctx, avatarConfig)
	if err != nil {
		return err
	}
	avatars := avatar.NewService(blobs,
		repository.NewJSONAvatarMetaRepository(avatarConfig.MetaPath),
		avatar.WithMaxBytes(avatarConfig.MaxBytes))

	server := httpapi.NewServer(httpapi.Config{
		StaticDir:      httpConfig.StaticDir,
		AllowedOrigins: httpConfig.CORSAllowedOrigins,
		MaxUploadBytes: avatarConfig.MaxBytes,
	}, httpapi.Deps{
		Avatars:  avatars,
		Members:  members.NewDirectory(discordConfig.GuildID, bot, session.State, session),
		Statuses: store,
		Overlay:  overlay.NewHandler(hub),
		Metrics:  promhttp.Handler(),
	})

	err = server.ListenAndServe(ctx, httpConfig.Addr())
	hub.Shutdown()
	slog.Info("Shutting down")
	return err
}

// refreshMembers re-requests the member list on the configured schedule so
// the cache catches members whose chunks were missed.
func refreshMembers(ctx context.Context, session *discordgo.Session, cfg *config.DiscordConfig) {
	if upcoming, err := schedule.NextRunTimes(cfg.MemberRefreshCron, 3); err == nil {
		slog.Info("Member refresh scheduled", "cron", cfg.MemberRefreshCron, "next", upcoming)
	}

	err := schedule.Every(ctx, cfg.MemberRefreshCron, func(ctx context.Context) {
		telemetry.Inc(telemetry.MemberRefreshRuns)
		if err := handler.RequestMembers(session, cfg.GuildID); err != nil {
			slog.Error("Failed to refresh guild members", "guildID", cfg.GuildID, "error", err)
		}
	})
	if err != nil {
		slog.Error("Member refresh stopped", "error", err)
	}
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
