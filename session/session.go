// Package session provides shared-seed rendezvous for generator streams.
// A session pins one textual seed and one authoritative server-side
// stream; independent clients on any runtime rebuild the same stream from
// the seed and can check their draws against the server's.
package session

import (
	"sync"
	"time"

	"github.com/simukka/seedstream/prng"
)

// DrawEvent describes one draw taken from a session's stream.
type DrawEvent struct {
	Draw  uint64 `json:"draw"`  // 1-based draw index within the session
	Value int    `json:"value"` // drawn value
	Min   int    `json:"min"`   // requested range, inclusive
	Max   int    `json:"max"`
}

// Session is one shared stream. The generator behind it is single-stream
// by contract, so every access goes through the session mutex.
type Session struct {
	ID      string
	Seed    string
	Created time.Time

	mu        sync.Mutex
	gen       *prng.Generator
	draws     uint64
	lastSeen  time.Time
	observers map[chan DrawEvent]struct{}
}

func newSession(id, seed string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Seed:      seed,
		Created:   now,
		gen:       prng.NewString(seed),
		lastSeen:  now,
		observers: make(map[chan DrawEvent]struct{}),
	}
}

// draw advances the session stream and fans the event out to observers.
// Slow observers miss events rather than stall the stream.
func (s *Session) draw(min, max int) (DrawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.gen.NextInt(min, max)
	if err != nil {
		return DrawEvent{}, err
	}
	s.draws++
	s.lastSeen = time.Now()

	ev := DrawEvent{Draw: s.draws, Value: v, Min: min, Max: max}
	for ch := range s.observers {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev, nil
}

// Draws reports how many values have been drawn from the session stream.
func (s *Session) Draws() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}

// State reports the stream's current state word.
func (s *Session) State() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.State()
}

func (s *Session) addObserver(ch chan DrawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers[ch] = struct{}{}
	s.lastSeen = time.Now()
}

func (s *Session) removeObserver(ch chan DrawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.observers[ch]; ok {
		delete(s.observers, ch)
		close(ch)
	}
}

func (s *Session) observerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) closeObservers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.observers {
		close(ch)
	}
	s.observers = make(map[chan DrawEvent]struct{})
}
