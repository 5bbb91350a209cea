// Package audio defines the playback primitive used by the narrator core.
//
// The two abstractions are:
//
//   - [Player] — turns synthesized audio bytes into a playable [Handle].
//   - [Handle] — one loaded audio resource with transport controls and
//     single-shot completion/error callbacks.
//
// Implementations are provided by adapter packages (audio/timed for headless
// server-side pacing, audio/mock for tests). The interfaces are intentionally
// narrow so the playback sequencer stays decoupled from how audio is actually
// rendered — a browser client, a local sound device, or a wall-clock timer.
package audio

// Player prepares raw audio bytes for playback.
//
// Implementations must be safe for concurrent use; the sequencer loads the
// current segment and preloads the next one concurrently.
type Player interface {
	// Load decodes data and returns a playable Handle. The returned handle
	// owns the underlying resource until Release is called.
	//
	// Returns an error if data is empty or cannot be decoded.
	Load(data []byte) (Handle, error)
}

// Handle is one loaded audio resource.
//
// A Handle is single-consumer: the sequencer that obtained it is the only
// caller. Callback registration is single-shot per playback attempt — a
// second OnEnded call replaces the first registration. Implementations must
// tolerate transport calls in any order (Pause before Play, double Release)
// without panicking.
type Handle interface {
	// Play starts playback from the beginning. Calling Play on a handle that
	// was paused mid-way also restarts from the beginning; use Resume to
	// continue in place.
	Play() error

	// Pause halts playback keeping the current position, so Resume can
	// continue without re-synthesis. Pausing a non-playing handle is a no-op.
	Pause() error

	// Resume continues playback from the paused position. Resuming a handle
	// that was never started behaves like Play.
	Resume() error

	// Release frees the underlying resource. After Release the handle is
	// inert: transport calls are no-ops and callbacks never fire. Safe to
	// call multiple times.
	Release()

	// OnEnded registers cb to run once when playback completes naturally.
	// Replaces any previous registration. The callback is invoked on an
	// internal goroutine and must not block.
	OnEnded(cb func())

	// OnError registers cb to run if playback fails (decode error, device
	// loss). Replaces any previous registration.
	OnError(cb func(error))

	// Size returns the byte length of the loaded audio. Used for logging
	// and duration estimates only.
	Size() int
}
