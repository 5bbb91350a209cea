// Package resilience provides the failover primitives the narrator uses to
// keep synthesis and scene analysis available when a remote provider
// degrades: a small cooldown breaker per provider, and ordered failover
// wrappers that present multiple backends as one.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCoolingDown is returned by [Breaker.Allow] while a tripped breaker
// waits out its cooldown.
var ErrCoolingDown = errors.New("resilience: provider cooling down")

// BreakerConfig tunes a [Breaker]. Zero values get defaults.
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// TripAfter is the number of consecutive failures before the breaker
	// trips. Default: 3.
	TripAfter int

	// Cooldown is how long a tripped breaker rejects calls before allowing
	// another attempt. Default: 20s.
	Cooldown time.Duration
}

// Breaker is a cooldown breaker: after TripAfter consecutive failures it
// rejects calls for Cooldown, then lets the next call probe the provider.
// A successful call resets it; a failed probe restarts the cooldown.
//
// Synthesis calls are user-interactive, so there is no separate half-open
// probe budget — one probe per cooldown window is enough and keeps the
// state space small.
type Breaker struct {
	name      string
	tripAfter int
	cooldown  time.Duration

	mu        sync.Mutex
	failures  int
	trippedAt time.Time
	tripped   bool
}

// NewBreaker creates a Breaker from cfg, applying defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 20 * time.Second
	}
	return &Breaker{
		name:      cfg.Name,
		tripAfter: cfg.TripAfter,
		cooldown:  cfg.Cooldown,
	}
}

// Allow reports whether a call may proceed. While cooling down it returns
// [ErrCoolingDown]; once the cooldown elapses the next call is admitted as
// a probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped && time.Since(b.trippedAt) < b.cooldown {
		return ErrCoolingDown
	}
	return nil
}

// Record feeds a call outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.tripped {
			slog.Info("provider recovered", "provider", b.name)
		}
		b.failures = 0
		b.tripped = false
		return
	}

	b.failures++
	if b.failures >= b.tripAfter && !b.tripped {
		b.tripped = true
		b.trippedAt = time.Now()
		slog.Warn("provider tripped, cooling down",
			"provider", b.name,
			"consecutive_failures", b.failures,
			"cooldown", b.cooldown,
		)
	} else if b.tripped {
		// Failed probe: restart the cooldown window.
		b.trippedAt = time.Now()
	}
}

// Tripped reports whether the breaker is currently rejecting calls.
func (b *Breaker) Tripped() bool {
	return b.Allow() != nil
}
