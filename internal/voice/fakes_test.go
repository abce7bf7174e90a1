package voice_test

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/voice-overlay/internal/status"
	"github.com/glizzus/voice-overlay/internal/voice"
)

type fakeLink struct {
	mu           sync.Mutex
	onSpeaking   func(userID string, ssrc uint32, speaking bool)
	packets      chan *discordgo.Packet
	disconnected atomic.Int32
}

func newFakeLink() *fakeLink {
	return &fakeLink{packets: make(chan *discordgo.Packet, 16)}
}

func (l *fakeLink) OnSpeakingUpdate(fn func(userID string, ssrc uint32, speaking bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSpeaking = fn
}

func (l *fakeLink) Packets() <-chan *discordgo.Packet { return l.packets }

func (l *fakeLink) Disconnect() error {
	l.disconnected.Add(1)
	return nil
}

func (l *fakeLink) speak(userID string, ssrc uint32, speaking bool) {
	l.mu.Lock()
	fn := l.onSpeaking
	l.mu.Unlock()
	fn(userID, ssrc, speaking)
}

var _ voice.Link = (*fakeLink)(nil)

type fakeDialer struct {
	mu    sync.Mutex
	calls []voice.Channel
	gate  chan struct{}
	err   error
	links []*fakeLink
}

func (d *fakeDialer) Dial(channel voice.Channel) (voice.Link, error) {
	d.mu.Lock()
	d.calls = append(d.calls, channel)
	gate, err := d.gate, d.err
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	link := newFakeLink()
	d.mu.Lock()
	d.links = append(d.links, link)
	d.mu.Unlock()
	return link, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

var errDialFailed = errors.New("voice gateway unreachable")

var _ voice.Dialer = (*fakeDialer)(nil)

type collector struct {
	mu     sync.Mutex
	events []status.Event
	signal chan struct{}
}

func newCollector() *collector {
	return &collector{signal: make(chan struct{}, 64)}
}

func (c *collector) Broadcast(e status.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *collector) snapshot() []status.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]status.Event(nil), c.events...)
}
