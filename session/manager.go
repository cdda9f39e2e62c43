package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned for operations on an unknown session ID.
var ErrNotFound = errors.New("session not found")

// observerBuffer is the per-observer event queue; a full queue drops
// events instead of blocking the stream.
const observerBuffer = 100

// Manager owns the live sessions and sweeps idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager and starts its cleanup loop. Sessions idle
// longer than ttl with no observers are removed.
func NewManager(ttl time.Duration) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Close stops the cleanup loop and closes all observer channels.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.closeObservers()
		delete(m.sessions, id)
	}
}

// cleanup removes stale sessions on a fixed cadence.
func (m *Manager) cleanup() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}
		m.mu.Lock()
		for id, s := range m.sessions {
			if s.observerCount() == 0 && time.Since(s.idleSince()) > m.ttl {
				delete(m.sessions, id)
			}
		}
		m.mu.Unlock()
	}
}

// Create registers a new session around the given textual seed. An empty
// seed is replaced with a freshly generated one so the caller still gets
// a shareable value.
func (m *Manager) Create(seed string) *Session {
	if seed == "" {
		seed = uuid.NewString()
	}
	s := newSession(uuid.NewString(), seed)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, id)
	}
	return s, nil
}

// Remove drops a session and disconnects its observers.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		s.closeObservers()
	}
}

// Draw advances the session's stream by one value in [min, max] and
// broadcasts the event to observers.
func (m *Manager) Draw(id string, min, max int) (DrawEvent, error) {
	s, err := m.Get(id)
	if err != nil {
		return DrawEvent{}, err
	}
	return s.draw(min, max)
}

// Observe subscribes to a session's draw events. The returned channel is
// closed when the observer is removed or the session ends.
func (m *Manager) Observe(id string) (chan DrawEvent, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	ch := make(chan DrawEvent, observerBuffer)
	s.addObserver(ch)
	return ch, nil
}

// Unobserve detaches a channel previously returned by Observe.
func (m *Manager) Unobserve(id string, ch chan DrawEvent) {
	s, err := m.Get(id)
	if err != nil {
		return
	}
	s.removeObserver(ch)
}
