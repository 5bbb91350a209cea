// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., OpenAI speech or
// ElevenLabs) and presents a uniform one-shot interface: whole-segment text
// in, raw PCM audio bytes out. The narrator synthesizes one segment at a
// time and caches the result, so a streaming interface buys nothing here —
// the unit of work is the segment.
//
// Implementations must be safe for concurrent use. The sequencer issues the
// current segment's synthesis and the next segment's preload concurrently.
package tts

import (
	"context"
	"errors"

	"github.com/quillcast/narrator/pkg/types"
)

// ErrNoCredentials indicates the provider has no usable API key. Unlike
// transient transport failures, this will not resolve by retrying the same
// call, so callers surface it to the user instead of silently skipping.
var ErrNoCredentials = errors.New("tts: missing credentials")

// ErrMalformedResponse indicates the remote service answered, but not with
// audio (an error body, an HTML page, text content). Treated as a synthesis
// failure by callers.
var ErrMalformedResponse = errors.New("tts: malformed response")

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text into raw PCM audio bytes using the given
	// voice profile. The full segment is synthesized in one call.
	//
	// Errors: [ErrNoCredentials] when no API key is configured,
	// [ErrMalformedResponse] when the service returns non-audio content, and
	// wrapped transport errors otherwise. Implementations never return an
	// empty byte slice with a nil error.
	Synthesize(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error)
}
