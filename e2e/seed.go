package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glizzus/voice-overlay/internal/avatar"
	"github.com/glizzus/voice-overlay/internal/datalayer"
	"github.com/glizzus/voice-overlay/internal/generator"
	"github.com/glizzus/voice-overlay/internal/httpapi"
	"github.com/glizzus/voice-overlay/internal/members"
	"github.com/glizzus/voice-overlay/internal/overlay"
	"github.com/glizzus/voice-overlay/internal/repository"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RandomSnowFlakeGenerator hands out increasing Discord-sized ids.
type RandomSnowFlakeGenerator struct {
	counter uint64
}

func (g *RandomSnowFlakeGenerator) Next() (string, error) {
	const min = 1e17
	atomic.CompareAndSwapUint64(&g.counter, 0, min)
	id := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%d", id), nil
}

var _ generator.Generator[string] = (*RandomSnowFlakeGenerator)(nil)

var (
	once           sync.Once
	redisContainer *tcredis.RedisContainer
	connStr        string
	startErr       error
	wg             sync.WaitGroup
)

// UseRedis signals that the test records statuses in Redis. This will either
// provision or reuse a Redis container for the test. Do not expect a clean
// state; the container is shared across tests, so tests must use their own
// subject ids.
func UseRedis(t *testing.T) *redis.Client {
	t.Helper()

	once.Do(func() {
		ctx := context.Background()
		redisContainer, startErr = tcredis.Run(ctx, "redis:7-alpine")
		if startErr != nil {
			return
		}
		connStr, startErr = redisContainer.ConnectionString(ctx)
	})

	if startErr != nil {
		t.Fatalf("failed to start redis container: %v", startErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	opts, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TerminateRedisForE2E() {
	wg.Wait()
	if redisContainer != nil {
		err := redisContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}

// Stack is the web side of the bot, wired the way the binary wires it, with
// Discord left out. Events passed to Broadcaster reach overlays exactly as
// gateway-driven events would.
type Stack struct {
	URL         string
	Hub         *overlay.Hub
	Broadcaster status.Broadcaster
	Store       status.Store
	UploadDir   string
}

type noMembers struct{}

func (noMembers) InChannel(context.Context, string) (members.Channel, error) {
	return members.Channel{Members: []members.ChannelMember{}}, nil
}

func (noMembers) All(context.Context) ([]members.GuildMember, error) {
	return []members.GuildMember{}, nil
}

func NewStack(t *testing.T, store status.Store) *Stack {
	t.Helper()

	uploadDir := t.TempDir()
	blobs, err := datalayer.NewDiskStorage(uploadDir)
	if err != nil {
		t.Fatalf("failed to create disk storage: %v", err)
	}
	avatars := avatar.NewService(blobs, repository.NewJSONAvatarMetaRepository(filepath.Join(uploadDir, "meta.json")))

	hub := overlay.NewHub(overlay.WithIDGenerator(&generator.Sequence{Prefix: "overlay"}))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Shutdown()
	})

	server := httpapi.NewServer(httpapi.Config{StaticDir: t.TempDir()}, httpapi.Deps{
		Avatars:  avatars,
		Members:  noMembers{},
		Statuses: store,
		Overlay:  overlay.NewHandler(hub),
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &Stack{
		URL:         ts.URL,
		Hub:         hub,
		Broadcaster: status.NewRecorder(store, hub),
		Store:       store,
		UploadDir:   uploadDir,
	}
}

// WaitForClients blocks until the hub has n connected overlays.
func (s *Stack) WaitForClients(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", s.Hub.Clients(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *Stack) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
