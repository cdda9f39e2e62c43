// Package prng implements a portable seeded pseudo-random number
// generator. Given the same seed, the sequence is identical across
// conforming implementations in other languages, which makes it suitable
// for reproducible simulations, procedural content, and test fixtures.
// It is a linear congruential generator with CRC-32 mixing and is not
// cryptographically secure.
package prng

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidRange is returned by NextInt when max < min.
var ErrInvalidRange = errors.New("max must not be less than min")

const (
	// LCG multiplier. The increment is not a constant; it is remixed on
	// every draw from the draw counter and the current state.
	multiplier = 1664525

	// 2^32 as a float, for mapping state into a caller range.
	modulusF = 4294967296.0
)

// Generator holds one random stream. Each instance owns its state
// exclusively; independent streams must use independent instances.
// A Generator is not safe for concurrent use.
type Generator struct {
	state    uint32
	counter  uint64
	saved    uint32
	hasSaved bool
}

// New creates a generator seeded from the wall clock (second resolution).
func New() *Generator {
	g := &Generator{}
	g.Reseed()
	return g
}

// NewInt creates a generator seeded from an integer. The absolute value
// is taken and truncated to 32 bits.
func NewInt(seed int64) *Generator {
	g := &Generator{}
	g.ReseedInt(seed)
	return g
}

// NewString creates a generator seeded from text via Hash32, so the same
// string yields the same stream everywhere.
func NewString(seed string) *Generator {
	g := &Generator{}
	g.ReseedString(seed)
	return g
}

// Reseed resets the generator to a clock-derived seed. The draw counter
// resets to zero; a saved snapshot, if any, is kept.
func (g *Generator) Reseed() {
	g.state = uint32(time.Now().Unix())
	g.counter = 0
}

// ReseedInt resets the generator to an integer seed.
func (g *Generator) ReseedInt(seed int64) {
	if seed < 0 {
		seed = -seed
	}
	g.state = uint32(seed)
	g.counter = 0
}

// ReseedString resets the generator to a textual seed.
func (g *Generator) ReseedString(seed string) {
	g.state = Hash32(seed)
	g.counter = 0
}

// step advances the LCG once and returns the new state. The increment is
// the CRC-32 of the decimal concatenation counter+state+counter, taken
// before the update, so it depends on both the draw index and the
// current state.
func (g *Generator) step() uint32 {
	mix := strconv.FormatUint(g.counter, 10) +
		strconv.FormatUint(uint64(g.state), 10) +
		strconv.FormatUint(g.counter, 10)
	increment := Hash32(mix)
	g.state = g.state*multiplier + increment
	g.counter++
	return g.state
}

// NextInt draws the next value in the inclusive range [min, max].
// The generator is not advanced when the range is invalid.
func (g *Generator) NextInt(min, max int) (int, error) {
	if max < min {
		return 0, errors.Wrapf(ErrInvalidRange, "next int in [%d,%d]", min, max)
	}
	state := g.step()
	return int(float64(state) / modulusF * float64(max-min+1)) + min, nil
}

// Next draws the next value over the default byte range [0, 255].
func (g *Generator) Next() int {
	v, _ := g.NextInt(0, 255)
	return v
}

// Bytes draws n values and returns them as a byte slice. When readable
// is set the values stay within the printable ASCII band [32, 126],
// otherwise they cover the full byte range. n <= 0 yields nil.
func (g *Generator) Bytes(n int, readable bool) []byte {
	if n <= 0 {
		return nil
	}
	min, max := 0, 255
	if readable {
		min, max = 32, 126
	}
	out := make([]byte, n)
	for i := range out {
		v, _ := g.NextInt(min, max)
		out[i] = byte(v)
	}
	return out
}

// Text draws n values and returns them as a text string, each value
// taken as a character code.
func (g *Generator) Text(n int, readable bool) string {
	if n <= 0 {
		return ""
	}
	min, max := 0, 255
	if readable {
		min, max = 32, 126
	}
	out := make([]rune, n)
	for i := range out {
		v, _ := g.NextInt(min, max)
		out[i] = rune(v)
	}
	return string(out)
}

// Save snapshots the current state. Each call overwrites the previous
// snapshot.
func (g *Generator) Save() {
	g.saved = g.state
	g.hasSaved = true
}

// Restore rewinds the state to the last snapshot, or does nothing if no
// snapshot was taken. The draw counter is deliberately not rewound:
// because the counter feeds the per-draw increment mix, the sequence
// after a restore differs from the sequence originally drawn after the
// save. Callers needing a bit-exact replay should reseed instead.
func (g *Generator) Restore() {
	if g.hasSaved {
		g.state = g.saved
	}
}

// State reports the current state word. Draws mutate it, so two
// generators with equal state and equal draw counters produce equal
// subsequent streams.
func (g *Generator) State() uint32 {
	return g.state
}
