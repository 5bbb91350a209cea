// Package timed provides a wall-clock audio.Player for headless operation.
//
// The server has no sound device: actual audible playback happens in the
// editor client, which receives segment audio over the gateway's event
// stream. The timed player is the authoritative pacer — it computes each
// segment's duration from its PCM byte length and fires OnEnded when that
// much wall-clock time has elapsed, driving the sequencer's completion
// chaining exactly as a real audio element's "ended" event would.
package timed

import (
	"errors"
	"sync"
	"time"

	"github.com/quillcast/narrator/pkg/audio"
)

// Default PCM parameters, matching the 24 kHz mono 16-bit output the OpenAI
// speech endpoint produces.
const (
	defaultSampleRate     = 24000
	defaultChannels       = 1
	defaultBytesPerSample = 2
)

// Option is a functional option for the Player.
type Option func(*Player)

// WithFormat sets the PCM parameters used to derive playback duration.
func WithFormat(sampleRate, channels, bytesPerSample int) Option {
	return func(p *Player) {
		p.sampleRate = sampleRate
		p.channels = channels
		p.bytesPerSample = bytesPerSample
	}
}

// Player implements audio.Player by timing playback against the wall clock.
type Player struct {
	sampleRate     int
	channels       int
	bytesPerSample int
}

// Compile-time interface assertion.
var _ audio.Player = (*Player)(nil)

// New creates a timed Player with 24 kHz mono 16-bit PCM defaults.
func New(opts ...Option) *Player {
	p := &Player{
		sampleRate:     defaultSampleRate,
		channels:       defaultChannels,
		bytesPerSample: defaultBytesPerSample,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Load implements audio.Player. The returned handle "plays" for a duration
// derived from len(data) and the configured PCM format.
func (p *Player) Load(data []byte) (audio.Handle, error) {
	if len(data) == 0 {
		return nil, errors.New("timed: empty audio data")
	}
	bytesPerSecond := p.sampleRate * p.channels * p.bytesPerSample
	dur := time.Duration(len(data)) * time.Second / time.Duration(bytesPerSecond)
	if dur <= 0 {
		dur = time.Millisecond
	}
	return &handle{size: len(data), total: dur, remaining: dur}, nil
}

// handle is a timer-driven audio.Handle.
type handle struct {
	mu        sync.Mutex
	size      int
	total     time.Duration
	remaining time.Duration
	startedAt time.Time
	timer     *time.Timer
	playing   bool
	released  bool
	onEnded   func()
	onError   func(error)
}

func (h *handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.stopTimerLocked()
	h.remaining = h.total
	h.startLocked()
	return nil
}

func (h *handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released || !h.playing {
		return nil
	}
	h.stopTimerLocked()
	elapsed := time.Since(h.startedAt)
	h.remaining -= elapsed
	if h.remaining < 0 {
		h.remaining = 0
	}
	h.playing = false
	return nil
}

func (h *handle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released || h.playing {
		return nil
	}
	if h.remaining <= 0 {
		h.remaining = h.total
	}
	h.startLocked()
	return nil
}

func (h *handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTimerLocked()
	h.playing = false
	h.released = true
	h.onEnded = nil
	h.onError = nil
}

func (h *handle) OnEnded(cb func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.onEnded = cb
}

func (h *handle) OnError(cb func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.onError = cb
}

func (h *handle) Size() int {
	return h.size
}

// startLocked arms the completion timer for the remaining duration.
// Caller must hold h.mu.
func (h *handle) startLocked() {
	h.playing = true
	h.startedAt = time.Now()
	h.timer = time.AfterFunc(h.remaining, h.fireEnded)
}

// stopTimerLocked disarms any pending completion timer. Caller must hold h.mu.
func (h *handle) stopTimerLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// fireEnded runs on the timer goroutine when the playback window elapses.
func (h *handle) fireEnded() {
	h.mu.Lock()
	if h.released || !h.playing {
		h.mu.Unlock()
		return
	}
	h.playing = false
	h.remaining = 0
	cb := h.onEnded
	h.mu.Unlock()

	if cb != nil {
		cb()
	}
}
