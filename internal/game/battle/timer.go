package battle

import (
	"sync"
	"time"
)

// RoundTimer forces round resolution when a round deadline expires. Each
// timer is captured together with the round number it guards; the fire
// callback receives that number so a fire racing a normal resolution is
// rejected by the session's stale-round guard. Safe for concurrent use.
type RoundTimer struct {
	mu      sync.Mutex
	round   int
	timer   *time.Timer
	stopped bool
}

// NewRoundTimer creates and starts a timer that calls onFire(round) after
// duration. onFire runs in a separate goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: Returns a running RoundTimer; onFire will be called with
// the captured round number unless Stop is called first.
func NewRoundTimer(round int, duration time.Duration, onFire func(round int)) *RoundTimer {
	rt := &RoundTimer{round: round}
	rt.timer = time.AfterFunc(duration, func() {
		rt.mu.Lock()
		stopped := rt.stopped
		rt.mu.Unlock()
		if !stopped {
			onFire(round)
		}
	})
	return rt
}

// Round returns the round number this timer guards.
func (rt *RoundTimer) Round() int {
	return rt.round
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: onFire will not be called after Stop returns.
func (rt *RoundTimer) Stop() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.stopped = true
	rt.timer.Stop()
}
