// Package types holds the domain types shared between the narrator core,
// the scene-breakdown providers, and the TTS providers.
package types

// SegmentKind classifies one unit of narration.
type SegmentKind string

const (
	// KindNarration is third-person narrative text, voiced by the narrator.
	KindNarration SegmentKind = "narration"

	// KindDialogue is spoken text attributed to a character.
	KindDialogue SegmentKind = "dialogue"

	// KindInternalMonologue is a character's unspoken thought.
	KindInternalMonologue SegmentKind = "internal_monologue"
)

// IsValid reports whether k is a recognised segment kind.
func (k SegmentKind) IsValid() bool {
	switch k {
	case KindNarration, KindDialogue, KindInternalMonologue:
		return true
	}
	return false
}

// Gender is the voice gender hint for synthesis.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
)

// AgeGroup is the voice age hint for synthesis.
type AgeGroup string

const (
	AgeChild AgeGroup = "child"
	AgeTeen  AgeGroup = "teen"
	AgeAdult AgeGroup = "adult"
	AgeElder AgeGroup = "elder"
)

// VoiceProfile describes how a segment should be voiced.
//
// The struct is deliberately comparable (no maps or slices): it is used
// directly as part of the synthesis cache key, where field-wise equality is
// the required semantics.
type VoiceProfile struct {
	// Gender is the voice gender hint.
	Gender Gender `json:"gender" yaml:"gender"`

	// Age is the voice age hint.
	Age AgeGroup `json:"age" yaml:"age"`

	// Tone is a free-text delivery hint (e.g., "gravelly", "warm").
	Tone string `json:"tone" yaml:"tone"`

	// Emotion is a free-text emotional register (e.g., "anxious", "amused").
	Emotion string `json:"emotion" yaml:"emotion"`

	// Pitch adjusts pitch (-10 to +10, 0 = provider default).
	Pitch float64 `json:"pitch,omitempty" yaml:"pitch"`

	// Speed adjusts speaking rate (0.5–2.0, 0 or 1.0 = provider default).
	Speed float64 `json:"speed,omitempty" yaml:"speed"`
}

// NeutralVoice is the profile used for fallback narration when scene
// analysis fails or a segment carries no usable voice metadata.
var NeutralVoice = VoiceProfile{
	Gender:  GenderNeutral,
	Age:     AgeAdult,
	Tone:    "even",
	Emotion: "calm",
}

// Span marks a half-open [From, To) byte range into the original source text.
type Span struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Segment is one atomic unit of narration with its voice metadata.
type Segment struct {
	// Text is the literal text to speak. Non-empty after trimming.
	Text string `json:"text"`

	// Kind determines default voicing.
	Kind SegmentKind `json:"kind"`

	// SpeakerID links to a known character; empty for narration.
	SpeakerID string `json:"speaker_id,omitempty"`

	// SpeakerName is the display and voice-fallback label.
	SpeakerName string `json:"speaker_name"`

	// Voice is the synthesis profile for this segment.
	Voice VoiceProfile `json:"voice"`

	// Span locates Text within the original source, when realignment
	// succeeded. Nil means highlighting is unavailable for this segment.
	Span *Span `json:"span,omitempty"`
}

// Character is one roster entry handed to the scene-breakdown provider so
// that dialogue can be attributed to known speakers.
type Character struct {
	// ID is the stable identifier for the character.
	ID string `json:"id"`

	// Name is the character's display name.
	Name string `json:"name"`

	// Description is free-text persona context for speaker attribution.
	Description string `json:"description,omitempty"`

	// Voice is the preferred synthesis profile for this character.
	Voice VoiceProfile `json:"voice"`
}
