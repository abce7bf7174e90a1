package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/glizzus/voice-overlay/internal/avatar"
	"github.com/glizzus/voice-overlay/internal/config"
	"github.com/glizzus/voice-overlay/internal/datalayer"
	"github.com/glizzus/voice-overlay/internal/repository"
	"github.com/glizzus/voice-overlay/internal/schedule"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/util"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

var stdinReader = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	input, _ := stdinReader.ReadString('\n')
	return strings.TrimSpace(input)
}

func avatarService(c *cli.Context) (*avatar.Service, error) {
	cfg, err := config.NewAvatarConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load avatar config: %w", err)
	}
	blobs, err := datalayer.NewBlobStorage(c.Context, cfg)
	if err != nil {
		return nil, err
	}
	return avatar.NewService(blobs, repository.NewJSONAvatarMetaRepository(cfg.MetaPath)), nil
}

var avatarsCommand = &cli.Command{
	Name:  "avatars",
	Usage: "Inspect and remove uploaded overlay avatars",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List every user with uploads, most recent first",
			Action: func(c *cli.Context) error {
				svc, err := avatarService(c)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				users, err := svc.Uploads(c.Context)
				if err != nil {
					return cli.Exit("Failed to list uploads: "+err.Error(), 1)
				}
				if len(users) == 0 {
					log.Println("No avatars uploaded yet.")
					return nil
				}
				for _, u := range users {
					log.Printf("%s  updated %s  %s", u.ID,
						time.UnixMilli(u.UpdatedAt).Format(time.RFC3339), strings.Join(util.SortedKeys(u.Avatars), ", "))
				}
				return nil
			},
		},
		{
			Name:  "delete",
			Usage: "Delete a user's avatar for one status",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user-id", Usage: "Discord user id the avatar belongs to", Required: true},
				&cli.StringFlag{Name: "status", Usage: "Status the avatar is shown for", Required: true},
				&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
			},
			Action: func(c *cli.Context) error {
				userID, st := c.String("user-id"), c.String("status")
				if !c.Bool("yes") {
					answer := prompt(fmt.Sprintf("Delete the %s avatar of %s? [y/N]", st, userID))
					if !strings.EqualFold(answer, "y") {
						log.Println("Aborted.")
						return nil
					}
				}

				svc, err := avatarService(c)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				deleted, err := svc.Delete(c.Context, userID, st)
				if err != nil {
					return cli.Exit("Failed to delete avatar: "+err.Error(), 1)
				}
				if !deleted {
					log.Println("Nothing to delete.")
					return nil
				}
				log.Println("Avatar deleted.")
				return nil
			},
		},
	},
}

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Print the status events an overlay receives",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "url", Value: "ws://localhost:3000/ws", Usage: "Overlay WebSocket URL"},
	},
	Action: func(c *cli.Context) error {
		conn, _, err := websocket.DefaultDialer.DialContext(c.Context, c.String("url"), nil)
		if err != nil {
			return cli.Exit("Failed to connect: "+err.Error(), 1)
		}
		defer conn.Close()
		go func() {
			<-c.Context.Done()
			conn.Close()
		}()

		for {
			var event status.Event
			if err := conn.ReadJSON(&event); err != nil {
				if c.Context.Err() != nil {
					return nil
				}
				return cli.Exit("Connection lost: "+err.Error(), 1)
			}
			log.Printf("%-20s %s", event.SubjectID, event.Status)
		}
	},
}

var statusesCommand = &cli.Command{
	Name:  "statuses",
	Usage: "Print the last known status of every subject",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "url", Value: "http://localhost:3000", Usage: "Base URL of the web server"},
	},
	Action: func(c *cli.Context) error {
		req, err := http.NewRequestWithContext(c.Context, http.MethodGet, strings.TrimSuffix(c.String("url"), "/")+"/statuses", nil)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return cli.Exit("Failed to fetch statuses: "+err.Error(), 1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return cli.Exit("Failed to fetch statuses: "+resp.Status, 1)
		}

		var statuses map[string]status.Status
		if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
			return cli.Exit("Malformed response: "+err.Error(), 1)
		}
		for _, id := range util.SortedKeys(statuses) {
			log.Printf("%-20s %s", id, statuses[id])
		}
		return nil
	},
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "Print the newest status events recorded in Redis",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "count", Value: 20, Usage: "Number of events to show"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.NewRedisConfigFromEnv()
		if err != nil {
			return cli.Exit("Failed to load redis config: "+err.Error(), 1)
		}
		if !cfg.Enabled() {
			return cli.Exit("REDIS_ADDR is not set; the bot only keeps history in redis", 1)
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password})
		defer client.Close()

		events, err := status.NewRedisEventLog(client, cfg.StreamMaxLen).Recent(c.Context, c.Int64("count"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if len(events) == 0 {
			log.Println("No events recorded yet.")
			return nil
		}
		for _, e := range events {
			log.Printf("%s  %-20s %s", e.At.Local().Format(time.TimeOnly), e.SubjectID, e.Status)
		}
		return nil
	},
}

var scheduleCommand = &cli.Command{
	Name:  "schedule",
	Usage: "Show when the member list refresh will run next",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "cron", Value: "*/30 * * * *", EnvVars: []string{"DISCORD_MEMBER_REFRESH_CRON"}, Usage: "Cron expression"},
		&cli.IntFlag{Name: "count", Value: 5, Usage: "Number of run times to show"},
	},
	Action: func(c *cli.Context) error {
		times, err := schedule.NextRunTimes(c.String("cron"), c.Int("count"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		for _, t := range times {
			log.Println(t.Format(time.RFC3339))
		}
		return nil
	},
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "voice-overlay-cli",
		Description: "A development CLI tool for poking at the voice overlay without Discord",
		Commands:    []*cli.Command{avatarsCommand, watchCommand, statusesCommand, historyCommand, scheduleCommand},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
