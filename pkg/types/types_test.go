package types_test

import (
	"testing"

	"github.com/quillcast/narrator/pkg/types"
)

func TestSegmentKind_IsValid(t *testing.T) {
	t.Parallel()

	valid := []types.SegmentKind{types.KindNarration, types.KindDialogue, types.KindInternalMonologue}
	for _, k := range valid {
		if !k.IsValid() {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []types.SegmentKind{"", "whisper", "NARRATION"} {
		if k.IsValid() {
			t.Errorf("%q should be invalid", k)
		}
	}
}

func TestVoiceProfile_Comparable(t *testing.T) {
	t.Parallel()

	a := types.VoiceProfile{Gender: types.GenderFemale, Age: types.AgeAdult, Tone: "warm", Emotion: "calm"}
	b := a
	if a != b {
		t.Fatal("identical profiles must compare equal")
	}
	b.Emotion = "angry"
	if a == b {
		t.Fatal("profiles differing in emotion must compare unequal")
	}

	// Usable as a map key; this is what the synthesis cache relies on.
	m := map[types.VoiceProfile]int{a: 1, b: 2}
	if m[a] != 1 || m[b] != 2 {
		t.Error("map lookups by profile failed")
	}
}
