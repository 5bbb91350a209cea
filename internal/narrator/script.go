// Package narrator implements the narration playback engine: the synthesis
// cache, the cache-first speech synthesizer, the playback sequencer state
// machine, and the highlight projection used by editor UIs.
//
// The sequencer is the only stateful coordinator. It tolerates out-of-order
// asynchronous completions through monotonically increasing request tokens:
// every attempt to start a segment is stamped, and results arriving under a
// superseded token are discarded unplayed. This guarantees at most one
// active audio resource at any instant, no matter how fast transport
// commands arrive relative to synthesis round-trips.
package narrator

import (
	"github.com/quillcast/narrator/pkg/types"
)

// Script is the ordered, immutable sequence of segments derived from one
// source text. A Script is keyed for reuse by the exact source string —
// scenes are bounded in size, so full-string equality is the cache key.
type Script struct {
	// Source is the raw scene text the script was derived from.
	Source string

	// Segments is the ordered narration sequence. Never mutated after the
	// script is built.
	Segments []types.Segment

	// Fallback marks a script fabricated because scene analysis failed:
	// one narration segment covering the whole source. Used to surface a
	// notice to the user while playback proceeds anyway.
	Fallback bool
}

// Len returns the number of segments in the script.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Segments)
}

// Segment returns the i-th segment and true, or a zero segment and false
// when i is out of range.
func (s *Script) Segment(i int) (types.Segment, bool) {
	if s == nil || i < 0 || i >= len(s.Segments) {
		return types.Segment{}, false
	}
	return s.Segments[i], true
}
