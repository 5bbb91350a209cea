package narrator

import (
	"fmt"
	"hash/fnv"
)

// Highlight is the text range and color an editor should paint for the
// segment currently being voiced.
type Highlight struct {
	// From and To are the half-open byte range into the source text.
	From int `json:"from"`
	To   int `json:"to"`

	// Color is a CSS color string derived from the speaker name.
	Color string `json:"color"`
}

// Project derives the active highlight from playback state. It returns nil
// when playback is stopped, the index is out of range, or the active
// segment was never realigned against the source (no span).
//
// Pure function: same inputs always produce the same highlight.
func Project(playing bool, script *Script, index int) *Highlight {
	if !playing {
		return nil
	}
	seg, ok := script.Segment(index)
	if !ok || seg.Span == nil {
		return nil
	}
	return &Highlight{
		From:  seg.Span.From,
		To:    seg.Span.To,
		Color: SpeakerColor(seg.SpeakerName),
	}
}

// SpeakerColor maps a speaker name to a stable HSL color. The hue comes
// from an FNV-1a hash of the name, so the same speaker gets the same color
// across calls, sessions, and processes; saturation and lightness are fixed
// to keep every speaker readable against editor text.
func SpeakerColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	hue := h.Sum32() % 360
	return fmt.Sprintf("hsl(%d, 70%%, 45%%)", hue)
}
