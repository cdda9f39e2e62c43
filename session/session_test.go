package session

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/simukka/seedstream/prng"
)

// --- Session Stream Tests ---

// TestManager_SameSeedSameStream verifies two sessions sharing a seed
// produce identical draw sequences
func TestManager_SameSeedSameStream(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	a := m.Create("shared-seed")
	b := m.Create("shared-seed")
	if a.ID == b.ID {
		t.Fatal("Expected distinct session IDs")
	}

	for i := 0; i < 20; i++ {
		ea, err := m.Draw(a.ID, 0, 1000)
		if err != nil {
			t.Fatalf("Draw on session a failed: %v", err)
		}
		eb, err := m.Draw(b.ID, 0, 1000)
		if err != nil {
			t.Fatalf("Draw on session b failed: %v", err)
		}
		if ea.Value != eb.Value {
			t.Fatalf("Streams diverged at draw %d: %d != %d", i, ea.Value, eb.Value)
		}
	}
}

// TestManager_DrawMatchesLocalGenerator verifies a client rebuilding the
// stream from the session seed agrees with the server-side draws
func TestManager_DrawMatchesLocalGenerator(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	s := m.Create("conformance")
	local := prng.NewString(s.Seed)
	for i := 0; i < 10; i++ {
		ev, err := m.Draw(s.ID, 0, 255)
		if err != nil {
			t.Fatalf("Draw failed: %v", err)
		}
		want, _ := local.NextInt(0, 255)
		if ev.Value != want {
			t.Fatalf("Server draw %d is %d, local client got %d", i, ev.Value, want)
		}
		if ev.Draw != uint64(i+1) {
			t.Errorf("Expected draw index %d, got %d", i+1, ev.Draw)
		}
	}
}

// TestManager_CreateWithoutSeed tests that an omitted seed is replaced
// with a generated shareable one
func TestManager_CreateWithoutSeed(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	s := m.Create("")
	if s.Seed == "" {
		t.Fatal("Expected a generated seed for an empty request")
	}
	other := m.Create("")
	if s.Seed == other.Seed {
		t.Error("Expected distinct generated seeds for separate sessions")
	}
}

// TestManager_UnknownSession tests lookups and draws against missing IDs
func TestManager_UnknownSession(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Get, got %v", err)
	}
	if _, err := m.Draw("nope", 0, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Draw, got %v", err)
	}
}

// TestManager_DrawInvalidRange tests that a bad range surfaces the
// generator's validation error without advancing the stream
func TestManager_DrawInvalidRange(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	s := m.Create("bad-range")
	if _, err := m.Draw(s.ID, 9, 3); !errors.Is(err, prng.ErrInvalidRange) {
		t.Fatalf("Expected ErrInvalidRange, got %v", err)
	}
	if s.Draws() != 0 {
		t.Errorf("Expected no draws after rejected call, got %d", s.Draws())
	}
}

// --- Observer Tests ---

// TestManager_ObserverReceivesDraws verifies observers see each draw
// event in order
func TestManager_ObserverReceivesDraws(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	s := m.Create("watched")
	ch, err := m.Observe(s.ID)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	want := make([]DrawEvent, 0, 5)
	for i := 0; i < 5; i++ {
		ev, err := m.Draw(s.ID, 0, 100)
		if err != nil {
			t.Fatalf("Draw failed: %v", err)
		}
		want = append(want, ev)
	}

	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Fatalf("Event %d: expected %+v, got %+v", i, w, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for event %d", i)
		}
	}
}

// TestManager_RemoveClosesObservers tests that removing a session
// disconnects its observers
func TestManager_RemoveClosesObservers(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	s := m.Create("ending")
	ch, err := m.Observe(s.ID)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	m.Remove(s.ID)

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("Expected observer channel to be closed, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("Observer channel was not closed after session removal")
	}

	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected session to be gone, got %v", err)
	}
}

// TestManager_UnobserveStopsDelivery tests that a detached observer gets
// a closed channel and no further events
func TestManager_UnobserveStopsDelivery(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	s := m.Create("detach")
	ch, err := m.Observe(s.ID)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	m.Unobserve(s.ID, ch)

	if _, err := m.Draw(s.ID, 0, 10); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if _, open := <-ch; open {
		t.Fatal("Expected closed channel after Unobserve")
	}
}
