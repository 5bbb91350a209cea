// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to return fixed audio bytes, script per-text results, or
// delay completions to exercise race handling in the sequencer:
//
//	p := &mock.Provider{Audio: []byte("pcm")}
//	p.FailFor("B") // every synthesis of "B" fails
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/types"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Voice is the VoiceProfile passed to Synthesize.
	Voice types.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is the byte slice returned on success. When nil, a non-empty
	// placeholder derived from the input text is returned instead.
	Audio []byte

	// Err, if non-nil, is returned from every Synthesize call.
	Err error

	// failTexts maps input texts that should fail to their error.
	failTexts map[string]error

	// Gate, if non-nil, is received from before Synthesize returns. Tests
	// use it to hold a synthesis call in flight while issuing transport
	// commands, then release it by sending or closing.
	Gate chan struct{}

	// Calls records every Synthesize invocation in order.
	Calls []SynthesizeCall
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// FailFor makes every synthesis of text return an error. Thread-safe.
func (p *Provider) FailFor(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTexts == nil {
		p.failTexts = make(map[string]error)
	}
	p.failTexts[text] = errors.New("mock: synthesis failed for " + text)
}

// Synthesize records the call and returns the configured audio or error.
// If a Gate channel is set, the call blocks until the gate yields or ctx is
// cancelled.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Voice: voice})
	gate := p.Gate
	err := p.Err
	if err == nil && p.failTexts != nil {
		err = p.failTexts[text]
	}
	audio := p.Audio
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if audio == nil {
		return []byte("pcm:" + text), nil
	}
	out := make([]byte, len(audio))
	copy(out, audio)
	return out, nil
}

// CallCount returns the number of Synthesize calls so far. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// CallsFor returns how many Synthesize calls were made for text. Thread-safe.
func (p *Provider) CallsFor(text string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if c.Text == text {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
