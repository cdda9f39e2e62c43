//go:build js
// +build js

// GopherJS entry point exposing the generator to browser JavaScript. The
// JS surface mirrors the Go API so a page can run the same stream as a
// native client given the same seed.
package main

import (
	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/seedstream/prng"
)

// wrap builds the JS-facing method map around one generator instance.
// Each call to SeedStream.new gets its own instance with its own state.
func wrap(g *prng.Generator) map[string]interface{} {
	return map[string]interface{}{
		"nextInt": func(min, max int) int {
			v, err := g.NextInt(min, max)
			if err != nil {
				panic(js.Global.Get("Error").New(err.Error()))
			}
			return v
		},
		"next": func() int {
			return g.Next()
		},
		"bytes": func(n int, readable bool) []byte {
			return g.Bytes(n, readable)
		},
		"text": func(n int, readable bool) string {
			return g.Text(n, readable)
		},
		"save": func() {
			g.Save()
		},
		"restore": func() {
			g.Restore()
		},
		"reseed": func(seed *js.Object) {
			reseed(g, seed)
		},
		"state": func() uint32 {
			return g.State()
		},
	}
}

// reseed applies the seed rule to a JS value: numbers are integer seeds
// (truncated), strings are hashed, anything else falls back to the clock.
func reseed(g *prng.Generator, seed *js.Object) {
	if seed == nil || seed == js.Undefined {
		g.Reseed()
		return
	}
	switch v := seed.Interface().(type) {
	case float64:
		g.ReseedInt(int64(v))
	case string:
		g.ReseedString(v)
	default:
		g.Reseed()
	}
}

func main() {
	js.Global.Set("SeedStream", map[string]interface{}{
		"new": func(seed *js.Object) map[string]interface{} {
			g := prng.New()
			reseed(g, seed)
			return wrap(g)
		},
		"hash32": func(s string) uint32 {
			return prng.Hash32(s)
		},
	})
}
