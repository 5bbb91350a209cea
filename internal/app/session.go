// Package app ties narration sessions to their lifecycles: creation,
// lookup, event fan-out to subscribers, idle eviction, and teardown.
package app

import (
	"errors"
	"sync"
	"time"

	"github.com/quillcast/narrator/internal/narrator"
)

// subscriberBuffer is the per-subscriber event channel depth. A subscriber
// that falls this far behind starts losing events rather than stalling
// playback.
const subscriberBuffer = 32

// Session is one live narration session: a sequencer with its own script
// and audio cache, plus the event subscribers mirroring its state.
type Session struct {
	// ID is the opaque session identifier handed to clients.
	ID string

	// Sequencer drives this session's playback.
	Sequencer *narrator.Sequencer

	mu         sync.Mutex
	lastActive time.Time
	subs       map[uint64]chan narrator.Event
	nextSub    uint64
	closed     bool
}

func newSession(id string) *Session {
	return &Session{
		ID:         id,
		lastActive: time.Now(),
		subs:       make(map[uint64]chan narrator.Event),
	}
}

// Touch records transport activity, deferring idle eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// idleSince returns the last activity timestamp.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Subscribe registers an event listener and returns its channel plus a
// cancel function. The channel is closed on cancel or session teardown.
func (s *Session) Subscribe() (<-chan narrator.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan narrator.Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// broadcast fans an event out to all subscribers. Slow subscribers lose
// events instead of blocking the sequencer.
func (s *Session) broadcast(ev narrator.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// close tears the session down. Idempotent.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.Sequencer.Close()
}

// ErrTooManySessions is returned by [Manager.Create] when the configured
// session cap is reached.
var ErrTooManySessions = errors.New("app: session limit reached")

// ErrSessionNotFound is returned by [Manager.Get] for unknown or already
// evicted session IDs.
var ErrSessionNotFound = errors.New("app: session not found")
