package voice

import (
	"slices"
	"sync"
	"time"

	"github.com/glizzus/voice-overlay/internal/opus"
)

// DefaultSilenceTimeout is how long a user must send no audio before they are
// considered to have stopped speaking.
const DefaultSilenceTimeout = 100 * time.Millisecond

// SpeakingFunc receives the id of the user whose speaking state changed.
type SpeakingFunc func(userID string)

// Listener is a start/end pair registered on a Receiver.
type Listener struct {
	Start SpeakingFunc
	End   SpeakingFunc
}

// Token identifies one registration on a Receiver.
type Token uint64

type speakingState struct {
	seq   uint64
	timer *time.Timer
}

// Receiver turns the audio flowing through a connection into speaking start
// and end edges for its registered listeners.
//
// Edges are delivered in the order the state changed. Listeners may register
// and unregister from inside a callback but must not feed the Receiver.
type Receiver struct {
	silenceTimeout time.Duration

	mu        sync.Mutex
	nextToken Token
	order     []Token
	listeners map[Token]Listener
	users     map[uint32]string
	speaking  map[string]*speakingState

	emitMu sync.Mutex
}

func NewReceiver(silenceTimeout time.Duration) *Receiver {
	if silenceTimeout <= 0 {
		silenceTimeout = DefaultSilenceTimeout
	}
	return &Receiver{
		silenceTimeout: silenceTimeout,
		listeners:      make(map[Token]Listener),
		users:          make(map[uint32]string),
		speaking:       make(map[string]*speakingState),
	}
}

// Register adds a listener pair and returns the token that removes it.
func (r *Receiver) Register(l Listener) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextToken++
	tok := r.nextToken
	r.listeners[tok] = l
	r.order = append(r.order, tok)
	return tok
}

// Unregister removes the registration behind tok. Unknown or already removed
// tokens are ignored and report false.
func (r *Receiver) Unregister(tok Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listeners[tok]; !ok {
		return false
	}
	delete(r.listeners, tok)
	r.order = slices.DeleteFunc(r.order, func(t Token) bool { return t == tok })
	return true
}

// Listeners returns the number of active registrations.
func (r *Receiver) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// SpeakingUpdate records which user sends on ssrc. Discord sends it when a
// user first transmits; speaking=false ends the user's current edge.
func (r *Receiver) SpeakingUpdate(userID string, ssrc uint32, speaking bool) {
	if userID == "" {
		return
	}

	r.mu.Lock()
	r.users[ssrc] = userID
	if speaking {
		r.mu.Unlock()
		return
	}
	st, ok := r.speaking[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	st.timer.Stop()
	delete(r.speaking, userID)
	r.emitAndUnlock(userID, false)
}

// Packet feeds one received opus frame.
func (r *Receiver) Packet(ssrc uint32, frame []byte) {
	if opus.IsSilence(frame) {
		return
	}

	r.mu.Lock()
	userID, ok := r.users[ssrc]
	if !ok {
		r.mu.Unlock()
		return
	}

	st, speaking := r.speaking[userID]
	if speaking {
		st.timer.Stop()
	} else {
		st = &speakingState{}
		r.speaking[userID] = st
	}
	st.seq++
	seq := st.seq
	st.timer = time.AfterFunc(r.silenceTimeout, func() { r.expire(userID, seq) })

	if speaking {
		r.mu.Unlock()
		return
	}
	r.emitAndUnlock(userID, true)
}

func (r *Receiver) expire(userID string, seq uint64) {
	r.mu.Lock()
	st, ok := r.speaking[userID]
	if !ok || st.seq != seq {
		r.mu.Unlock()
		return
	}
	delete(r.speaking, userID)
	r.emitAndUnlock(userID, false)
}

// Reset forgets every SSRC mapping and ends every active edge.
func (r *Receiver) Reset() {
	r.mu.Lock()
	active := make([]string, 0, len(r.speaking))
	for userID, st := range r.speaking {
		st.timer.Stop()
		active = append(active, userID)
	}
	clear(r.speaking)
	clear(r.users)
	slices.Sort(active)
	r.mu.Unlock()

	for _, userID := range active {
		r.mu.Lock()
		r.emitAndUnlock(userID, false)
	}
}

// emitAndUnlock must be called with r.mu held. It takes emitMu before giving
// up r.mu so edges reach listeners in the order their state changed.
func (r *Receiver) emitAndUnlock(userID string, start bool) {
	fns := make([]SpeakingFunc, 0, len(r.order))
	for _, tok := range r.order {
		l := r.listeners[tok]
		fn := l.End
		if start {
			fn = l.Start
		}
		if fn != nil {
			fns = append(fns, fn)
		}
	}

	r.emitMu.Lock()
	r.mu.Unlock()
	defer r.emitMu.Unlock()

	for _, fn := range fns {
		fn(userID)
	}
}
