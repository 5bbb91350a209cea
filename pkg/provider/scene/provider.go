// Package scene defines the Provider interface for scene-breakdown backends.
//
// A scene provider takes raw scene prose plus a character roster and returns
// an ordered list of typed speech segments with voice metadata — who speaks
// which stretch of text, and how. The narrator treats this as one opaque
// remote call; span realignment and failure fallback live in the analyzer
// adapter, not here.
//
// Implementations must be safe for concurrent use.
package scene

import (
	"context"

	"github.com/quillcast/narrator/pkg/types"
)

// Provider is the abstraction over any scene-breakdown backend.
type Provider interface {
	// BreakdownScene splits text into ordered narration and dialogue
	// segments, attributing dialogue to roster characters where possible.
	// Returned segments carry no spans; callers align them against the
	// source text themselves.
	//
	// Returns an error if the service cannot be reached or returns an
	// unusable response. Implementations never return an empty segment
	// list with a nil error for non-empty input.
	BreakdownScene(ctx context.Context, text string, roster []types.Character) ([]types.Segment, error)
}
