// Package status carries the short user-facing status line of the client.
package status

import (
	"sync"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"
)

type Kind string

const (
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

const (
	MsgNoWallet      = "No Wallet Found."
	MsgOnline        = "Wallet Online."
	MsgConnectFailed = "Connect Failed."
	MsgNotConnected  = "Wallet not connected."
	MsgBroadcasting  = "Broadcasting Vibe..."
	MsgFinalizing    = "Finalizing..."
	MsgSent          = "Vibe Sent! 🚀"
	MsgTxFailed      = "Tx Failed."
	MsgSyncComplete  = "Sync Complete."
	MsgSyncFailedFmt = "Sync Failed: %s"
)

type Event struct {
	Message string    `json:"message"`
	Kind    Kind      `json:"kind"`
	Link    string    `json:"link,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

func (e Event) Terminal() bool { return e.Kind != KindLoading }

const historyLimit = 50

// Reporter keeps the latest events and fans them out to subscribers. Slow
// subscribers miss events rather than block the publisher.
type Reporter struct {
	mu     sync.Mutex
	events []Event
	subs   map[int]chan Event
	nextID int
	now    func() time.Time
}

func NewReporter() *Reporter {
	return &Reporter{subs: make(map[int]chan Event), now: time.Now}
}

func (r *Reporter) Loading(msg string) {
	r.Publish(Event{Message: msg, Kind: KindLoading})
}

func (r *Reporter) Success(msg, link string) {
	r.Publish(Event{Message: msg, Kind: KindSuccess, Link: link})
}

// Error publishes msg; err, when set, is kept as detail for logs and API consumers.
func (r *Reporter) Error(msg string, err error) {
	e := Event{Message: msg, Kind: KindError}
	if err != nil {
		e.Detail = err.Error()
	}
	r.Publish(e)
}

func (r *Reporter) Publish(e Event) {
	if e.At.IsZero() {
		e.At = r.now()
	}

	if e.Kind == KindError {
		log.Warn("status", "message", e.Message, "detail", e.Detail)
	} else {
		log.Info("status", "message", e.Message, "kind", string(e.Kind), "link", e.Link)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
	if len(r.events) > historyLimit {
		r.events = r.events[len(r.events)-historyLimit:]
	}
	for _, ch := range r.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (r *Reporter) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Recent returns up to n events, newest first.
func (r *Reporter) Recent(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.events) {
		n = len(r.events)
	}
	out := make([]Event, 0, n)
	for i := len(r.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.events[i])
	}
	return out
}

// Subscribe returns a channel of future events and a function to stop.
func (r *Reporter) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
}
