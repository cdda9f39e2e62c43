//go:build !js
// +build !js

// Command server runs the seed-session service: it hands out shareable
// seeds, performs authoritative draws for a session's stream, and streams
// draw events to observers so independent clients can verify that their
// local generators stay in lockstep with the server.
package main

import (
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"github.com/simukka/seedstream/prng"
	"github.com/simukka/seedstream/session"
)

//go:embed index.html
var indexHTML []byte

// config is read from the environment first; flags override.
type config struct {
	Port       int           `env:"SEEDSTREAM_PORT" envDefault:"8080"`
	SessionTTL time.Duration `env:"SEEDSTREAM_SESSION_TTL" envDefault:"10m"`
	VerifyMax  int           `env:"SEEDSTREAM_VERIFY_MAX" envDefault:"4096"`
}

// Global session manager instance
var sessions *session.Manager

var verifyLimit int

// sessionInfo is the JSON shape returned for session metadata.
type sessionInfo struct {
	ID      string `json:"id"`
	Seed    string `json:"seed"`
	Draws   uint64 `json:"draws"`
	State   uint32 `json:"state"`
	Created int64  `json:"created"`
}

func infoFor(s *session.Session) sessionInfo {
	return sessionInfo{
		ID:      s.ID,
		Seed:    s.Seed,
		Draws:   s.Draws(),
		State:   s.State(),
		Created: s.Created.Unix(),
	}
}

// setCORS allows browser clients served from other origins.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, prng.ErrInvalidRange):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// rangeParams reads min/max query parameters, defaulting to the byte
// range when absent.
func rangeParams(r *http.Request) (int, int, error) {
	min, max := 0, 255
	var err error
	if v := r.URL.Query().Get("min"); v != "" {
		if min, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.Wrap(err, "min")
		}
	}
	if v := r.URL.Query().Get("max"); v != "" {
		if max, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.Wrap(err, "max")
		}
	}
	return min, max, nil
}

// handleSession creates a session (POST) or reports one (GET)
func handleSession(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	switch r.Method {
	case "OPTIONS":
		w.WriteHeader(http.StatusOK)
	case "POST":
		s := sessions.Create(r.URL.Query().Get("seed"))
		log.Printf("Created session %s (seed %q)", s.ID, s.Seed)
		writeJSON(w, http.StatusOK, infoFor(s))
	case "GET":
		s, err := sessions.Get(r.URL.Query().Get("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, infoFor(s))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDraw advances a session's stream by one value
func handleDraw(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	min, max, err := rangeParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ev, err := sessions.Draw(r.URL.Query().Get("id"), min, max)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleWatch streams a session's draw events via Server-Sent Events
func handleWatch(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	id := r.URL.Query().Get("id")

	s, err := sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	ch, err := sessions.Observe(id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Send the session info first so late joiners know the seed and how
	// far the stream has advanced.
	infoJSON, _ := json.Marshal(infoFor(s))
	fmt.Fprintf(w, "data: %s\n\n", infoJSON)
	flusher.Flush()

	log.Printf("Observer joined session %s", id)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			sessions.Unobserve(id, ch)
			log.Printf("Observer left session %s", id)
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			evJSON, _ := json.Marshal(ev)
			fmt.Fprintf(w, "data: %s\n\n", evJSON)
			flusher.Flush()
		}
	}
}

var integerSeed = regexp.MustCompile(`^-?[0-9]+$`)

// generatorForSeed applies the seed-derivation rule to a query value: an
// all-digit seed is taken as an integer, anything else is hashed as text.
func generatorForSeed(seed string) *prng.Generator {
	if seed == "" {
		return prng.New()
	}
	if integerSeed.MatchString(seed) {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			return prng.NewInt(n)
		}
	}
	return prng.NewString(seed)
}

// handleVerify returns a stateless golden sequence for a seed so other
// implementations can check their streams
func handleVerify(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count := 5
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "count must be a non-negative integer"})
			return
		}
		count = n
	}
	if count > verifyLimit {
		count = verifyLimit
	}
	min, max, err := rangeParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	seed := r.URL.Query().Get("seed")
	g := generatorForSeed(seed)
	values := make([]int, 0, count)
	for i := 0; i < count; i++ {
		v, err := g.NextInt(min, max)
		if err != nil {
			writeError(w, err)
			return
		}
		values = append(values, v)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seed":   seed,
		"min":    min,
		"max":    max,
		"values": values,
	})
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}
	port := flag.Int("port", cfg.Port, "HTTP server port")
	ttl := flag.Duration("session-ttl", cfg.SessionTTL, "Idle session lifetime")
	flag.Parse()

	sessions = session.NewManager(*ttl)
	verifyLimit = cfg.VerifyMax

	// Serve embedded index.html at root path
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})

	http.HandleFunc("/api/session", handleSession)
	http.HandleFunc("/api/draw", handleDraw)
	http.HandleFunc("/api/watch", handleWatch)
	http.HandleFunc("/api/verify", handleVerify)

	// Health check
	http.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Seedstream server starting on http://localhost%s", addr)
	log.Printf("Session endpoint: /api/session")
	log.Printf("Draw endpoint: /api/draw?id=SESSION_ID&min=0&max=255")
	log.Printf("Watch endpoint: /api/watch?id=SESSION_ID")
	log.Printf("Verify endpoint: /api/verify?seed=SEED&count=N")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
