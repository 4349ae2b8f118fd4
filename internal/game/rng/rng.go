// Package rng provides the randomness abstraction for the Urba battle engine.
//
// Every chance roll in the engine (dodge, crit, bot move selection) goes
// through a Source so that combat resolution is fully deterministic under a
// fixed source in tests.
package rng

// Source is the randomness provider for combat rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int

	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}
