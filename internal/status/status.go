package status

import "github.com/bwmarrin/discordgo"

// Status is the tag an overlay uses to pick an avatar image for a subject.
type Status string

const (
	StatusSpeaking    Status = "speaking"
	StatusNotSpeaking Status = "not-speaking"
	StatusMicOff      Status = "mic-off"
	// StatusNotInVoice means the subject is not in any voice channel.
	// Overlays know it by its historical wire value "headphones".
	StatusNotInVoice Status = "headphones"
	StatusOffline    Status = "offline"
	StatusIdle       Status = "idle"
	StatusDND        Status = "dnd"
	StatusOnline     Status = "online"
)

// AvatarStatuses are the statuses an overlay renders a custom avatar for.
var AvatarStatuses = []Status{
	StatusSpeaking,
	StatusNotSpeaking,
	StatusMicOff,
	StatusNotInVoice,
}

// FromPresence translates a gateway presence status. An absent status and
// "invisible" are both reported as offline.
func FromPresence(s discordgo.Status) Status {
	switch s {
	case "", discordgo.StatusInvisible, discordgo.StatusOffline:
		return StatusOffline
	case discordgo.StatusOnline:
		return StatusOnline
	case discordgo.StatusIdle:
		return StatusIdle
	case discordgo.StatusDoNotDisturb:
		return StatusDND
	default:
		return Status(s)
	}
}

// Event is a single status change for one subject.
type Event struct {
	SubjectID string `json:"id"`
	Status    Status `json:"status"`
}

// Broadcaster pushes an event to every interested overlay client.
// Delivery is best effort: at most once, no acknowledgement.
type Broadcaster interface {
	Broadcast(event Event)
}

// BroadcasterFunc adapts a function to a Broadcaster.
type BroadcasterFunc func(Event)

func (f BroadcasterFunc) Broadcast(event Event) { f(event) }

// Fanout forwards each event to every broadcaster in order.
type Fanout []Broadcaster

func (f Fanout) Broadcast(event Event) {
	for _, b := range f {
		b.Broadcast(event)
	}
}

var (
	_ Broadcaster = BroadcasterFunc(nil)
	_ Broadcaster = Fanout(nil)
)
