// Package mock provides test doubles for the audio.Player and audio.Handle
// interfaces.
//
// Use Player to hand out manually triggerable handles and to verify what the
// sequencer loads and plays:
//
//	p := &mock.Player{}
//	// ... run the code under test ...
//	h := p.Handles[0]
//	h.TriggerEnded() // simulate natural completion
package mock

import (
	"sync"

	"github.com/quillcast/narrator/pkg/audio"
)

// Player is a mock implementation of audio.Player.
type Player struct {
	mu sync.Mutex

	// LoadErr, if non-nil, is returned from every Load call.
	LoadErr error

	// LoadCalls records the data passed to each Load call, in order.
	LoadCalls [][]byte

	// Handles records every handle returned by Load, in order.
	Handles []*Handle
}

// Compile-time interface assertion.
var _ audio.Player = (*Player)(nil)

// Load records the call and returns a fresh manually triggerable Handle.
func (p *Player) Load(data []byte) (audio.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	p.LoadCalls = append(p.LoadCalls, dataCopy)
	if p.LoadErr != nil {
		return nil, p.LoadErr
	}
	h := &Handle{size: len(data)}
	p.Handles = append(p.Handles, h)
	return h, nil
}

// HandleCount returns the number of handles created so far. Thread-safe.
func (p *Player) HandleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Handles)
}

// HandleAt returns the i-th created handle, or nil if out of range.
// Thread-safe.
func (p *Player) HandleAt(i int) *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.Handles) {
		return nil
	}
	return p.Handles[i]
}

// Reset clears all recorded calls and handles. Thread-safe.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LoadCalls = nil
	p.Handles = nil
}

// Handle is a mock audio.Handle whose completion and error events are fired
// manually from the test via TriggerEnded / TriggerError.
type Handle struct {
	mu sync.Mutex

	size     int
	playing  bool
	released bool
	onEnded  func()
	onError  func(error)

	// Call counters, readable via the accessor methods.
	playCalls   int
	pauseCalls  int
	resumeCalls int
}

// Compile-time interface assertion.
var _ audio.Handle = (*Handle)(nil)

// Play marks the handle as playing.
func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.playing = true
	h.playCalls++
	return nil
}

// Pause marks the handle as not playing.
func (h *Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.playing = false
	h.pauseCalls++
	return nil
}

// Resume marks the handle as playing again.
func (h *Handle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.playing = true
	h.resumeCalls++
	return nil
}

// Release marks the handle released and drops its callbacks.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	h.released = true
	h.onEnded = nil
	h.onError = nil
}

// OnEnded stores cb, replacing any previous registration.
func (h *Handle) OnEnded(cb func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.onEnded = cb
}

// OnError stores cb, replacing any previous registration.
func (h *Handle) OnError(cb func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.onError = cb
}

// Size returns the byte length the handle was loaded with.
func (h *Handle) Size() int {
	return h.size
}

// IsPlaying reports whether the handle is in a started-and-not-yet-
// paused/ended/released state. Tests assert the at-most-one-active property
// against this.
func (h *Handle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// PlayCalls returns how many times Play was invoked.
func (h *Handle) PlayCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playCalls
}

// PauseCalls returns how many times Pause was invoked.
func (h *Handle) PauseCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pauseCalls
}

// ResumeCalls returns how many times Resume was invoked.
func (h *Handle) ResumeCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resumeCalls
}

// TriggerEnded simulates natural playback completion. The handle stops
// playing and the registered OnEnded callback (if any) runs synchronously on
// the caller's goroutine.
func (h *Handle) TriggerEnded() {
	h.mu.Lock()
	if h.released || !h.playing {
		h.mu.Unlock()
		return
	}
	h.playing = false
	cb := h.onEnded
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// TriggerError simulates a mid-playback failure (decode error, device loss).
func (h *Handle) TriggerError(err error) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.playing = false
	cb := h.onError
	h.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}
