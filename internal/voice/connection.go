package voice

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

type State int

const (
	StateConnecting State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is the bot's handle on one guild's voice session. Listeners may
// be registered on its Receiver before the underlying link is ready.
type Connection struct {
	guildID  string
	receiver *Receiver

	mu      sync.Mutex
	channel Channel
	state   State
	link    Link
	done    chan struct{}
}

func newConnection(channel Channel, silenceTimeout time.Duration) *Connection {
	return &Connection{
		guildID:  channel.GuildID,
		receiver: NewReceiver(silenceTimeout),
		channel:  channel,
		state:    StateConnecting,
		done:     make(chan struct{}),
	}
}

func (c *Connection) GuildID() string {
	return c.guildID
}

func (c *Connection) Receiver() *Receiver {
	return c.receiver
}

func (c *Connection) Channel() Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// bind attaches a dialed link. It reports false if the connection was closed
// while the dial was in flight; the caller owns the link in that case.
func (c *Connection) bind(link Link) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return false
	}
	c.link = link
	c.state = StateReady
	link.OnSpeakingUpdate(c.receiver.SpeakingUpdate)
	if packets := link.Packets(); packets != nil {
		go c.pump(packets)
	}
	return true
}

func (c *Connection) pump(packets <-chan *discordgo.Packet) {
	for {
		select {
		case <-c.done:
			return
		case p, ok := <-packets:
			if !ok {
				return
			}
			if p != nil {
				c.receiver.Packet(p.SSRC, p.Opus)
			}
		}
	}
}

func (c *Connection) setChannelID(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel.ID != channelID {
		c.channel = Channel{ID: channelID, GuildID: c.guildID}
	}
}

// close tears the connection down. Subjects still marked as speaking get an
// end edge. Closing twice is a no-op.
func (c *Connection) close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	close(c.done)
	link := c.link
	c.link = nil
	c.mu.Unlock()

	c.receiver.Reset()
	if link != nil {
		return link.Disconnect()
	}
	return nil
}
