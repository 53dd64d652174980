package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"SentiFlow/internal/domain/models"
	"SentiFlow/pkg/queue"
)

// State is the connection lifecycle phase.
type State int32

const (
	StateConnecting State = iota
	StateEstablished
	StateSubscribed
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateEstablished:
		return "established"
	case StateSubscribed:
		return "subscribed"
	case StateClosing:
		return "closing"
	}
	return "closed"
}

// Conn is the transport surface the broadcaster needs. *websocket.Conn
// satisfies it; tests substitute an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// FilterAll subscribes a connection to every symbol.
const FilterAll = "*"

// Subscriber is one connected client: its filter, outbound queue, and writer
// goroutine. The filter is fixed for the life of a subscription epoch; each
// subscribe frame starts a new epoch.
type Subscriber struct {
	id    string
	conn  Conn
	out   *queue.Bounded[models.ServerMessage]
	state atomic.Int32

	mu     sync.RWMutex
	all    bool
	filter map[string]struct{}
	epoch  int
}

func newSubscriber(id string, conn Conn, queueSize int) *Subscriber {
	return &Subscriber{
		id:   id,
		conn: conn,
		out:  queue.NewBounded[models.ServerMessage](queueSize, queue.WithPolicy[models.ServerMessage](queue.DropOldest)),
	}
}

// ID returns the connection id.
func (s *Subscriber) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Subscriber) State() State {
	return State(s.state.Load())
}

func (s *Subscriber) setState(st State) {
	s.state.Store(int32(st))
}

// setFilter installs a new filter and starts a new epoch. An empty symbol
// list clears the subscription; FilterAll matches everything.
func (s *Subscriber) setFilter(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.all = false
	s.filter = nil
	if len(symbols) == 0 {
		s.setState(StateEstablished)
		return
	}
	s.filter = make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		if sym == FilterAll {
			s.all = true
		}
		s.filter[sym] = struct{}{}
	}
	s.setState(StateSubscribed)
}

// filterUpdate returns the subset of the update this subscriber may see: the
// results and signals whose symbols pass the filter. Wildcard subscribers see
// the whole update. The second return reports whether anything survived.
func (s *Subscriber) filterUpdate(u models.Update) (models.Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.all {
		return u, true
	}
	if len(s.filter) == 0 {
		return models.Update{}, false
	}

	var view models.Update
	for _, r := range u.Results {
		for _, sym := range r.Symbols {
			if _, ok := s.filter[sym]; ok {
				view.Results = append(view.Results, r)
				break
			}
		}
	}
	for _, sig := range u.Signals {
		if _, ok := s.filter[sig.Symbol]; ok {
			view.Signals = append(view.Signals, sig)
		}
	}
	return view, len(view.Results) > 0 || len(view.Signals) > 0
}

// Epoch returns the current subscription epoch.
func (s *Subscriber) Epoch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// enqueue offers a message to the outbound queue and reports whether an
// older message was evicted to make room.
func (s *Subscriber) enqueue(msg models.ServerMessage) (evicted bool) {
	return s.out.Push(msg)
}
