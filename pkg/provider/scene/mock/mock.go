// Package mock provides a test double for the scene.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/quillcast/narrator/pkg/provider/scene"
	"github.com/quillcast/narrator/pkg/types"
)

// BreakdownCall records a single invocation of BreakdownScene.
type BreakdownCall struct {
	// Text is the scene text passed to BreakdownScene.
	Text string
	// Roster is the character roster passed to BreakdownScene.
	Roster []types.Character
}

// Provider is a mock implementation of scene.Provider.
type Provider struct {
	mu sync.Mutex

	// Segments is returned from BreakdownScene on success.
	Segments []types.Segment

	// Err, if non-nil, is returned from every BreakdownScene call.
	Err error

	// Calls records every BreakdownScene invocation in order.
	Calls []BreakdownCall
}

// Compile-time interface assertion.
var _ scene.Provider = (*Provider)(nil)

// BreakdownScene records the call and returns Segments, Err.
func (p *Provider) BreakdownScene(ctx context.Context, text string, roster []types.Character) ([]types.Segment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rosterCopy := make([]types.Character, len(roster))
	copy(rosterCopy, roster)
	p.Calls = append(p.Calls, BreakdownCall{Text: text, Roster: rosterCopy})
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]types.Segment, len(p.Segments))
	copy(out, p.Segments)
	return out, nil
}

// CallCount returns the number of BreakdownScene calls so far. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
