package overlay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/glizzus/voice-overlay/internal/generator"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/telemetry"
)

// Hub tracks the connected overlay clients and pushes status events to them.
//
// Delivery is at most once: an event reaches the clients that are open at the
// moment it is broadcast and nobody else. Clients that connect later, or whose
// send buffer is full, miss it.
type Hub struct {
	ids generator.Generator[string]

	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
}

type HubOption func(*Hub)

// WithIDGenerator replaces the UUID generator used for client ids.
func WithIDGenerator(ids generator.Generator[string]) HubOption {
	return func(h *Hub) {
		h.ids = ids
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		ids:        &generator.UUIDV4Generator{},
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ status.Broadcaster = (*Hub)(nil)

// Run processes client registrations until ctx is cancelled or the hub is shut
// down. Remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register adds a client and opens it. It returns false if the hub is no
// longer running.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister schedules a client's removal. It never blocks the caller.
func (h *Hub) Unregister(client *Client) {
	if !client.setClosing() {
		return
	}
	select {
	case h.unregister <- client:
	default:
		go func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		}()
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	client.setOpen()
	telemetry.SetOverlayClients(len(h.clients))
	slog.Info("overlay client connected", "clientID", client.id, "clients", len(h.clients))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.id]; !ok || current != client {
		return
	}
	delete(h.clients, client.id)
	client.markClosed()
	telemetry.SetOverlayClients(len(h.clients))
	slog.Info("overlay client disconnected", "clientID", client.id, "clients", len(h.clients))
}

func (h *Hub) closeAll() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		client.markClosed()
	}
	telemetry.SetOverlayClients(0)
}

// Broadcast sends e to every open client. Clients in any other state are
// skipped. A client whose buffer is full loses the event and is disconnected.
func (h *Hub) Broadcast(e status.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal status event", "subjectID", e.SubjectID, "error", err)
		return
	}
	telemetry.IncBroadcast(string(e.Status))

	var slow []*Client

	h.mu.RLock()
	for _, client := range h.clients {
		if client.State() != StateOpen {
			continue
		}
		select {
		case client.send <- data:
		default:
			telemetry.IncDropped()
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		slog.Warn("overlay client send buffer full, disconnecting", "clientID", client.id)
		h.Unregister(client)
	}
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown stops Run and disconnects every client.
func (h *Hub) Shutdown() {
	h.closeAll()
}
