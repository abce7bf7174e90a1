package voice

import (
	"sync"

	"github.com/glizzus/voice-overlay/internal/telemetry"
)

// Registry holds at most one Connection per guild.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// GetOrCreate returns the guild's connection, calling create only when there
// is none. The boolean reports whether create was called.
func (r *Registry) GetOrCreate(guildID string, create func() *Connection) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[guildID]; ok {
		return conn, false
	}
	conn := create()
	r.conns[guildID] = conn
	telemetry.SetVoiceConnections(len(r.conns))
	return conn, true
}

func (r *Registry) Get(guildID string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[guildID]
	return conn, ok
}

// Remove deletes the guild's entry if it is still conn. A nil conn removes
// whatever is stored. It returns the removed connection, if any.
func (r *Registry) Remove(guildID string, conn *Connection) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[guildID]
	if !ok || (conn != nil && current != conn) {
		return nil
	}
	delete(r.conns, guildID)
	telemetry.SetVoiceConnections(len(r.conns))
	return current
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) All() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}
