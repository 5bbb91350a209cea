package openai

import (
	"context"
	"errors"
	"testing"

	oai "github.com/openai/openai-go"

	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/types"
)

func TestSynthesize_NoKey(t *testing.T) {
	t.Parallel()

	p := New("", "")
	_, err := p.Synthesize(context.Background(), "hi", types.NeutralVoice)
	if !errors.Is(err, tts.ErrNoCredentials) {
		t.Fatalf("error = %v, want ErrNoCredentials", err)
	}
}

func TestVoiceFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		voice types.VoiceProfile
		want  oai.AudioSpeechNewParamsVoice
	}{
		{"female adult", types.VoiceProfile{Gender: types.GenderFemale, Age: types.AgeAdult}, oai.AudioSpeechNewParamsVoiceNova},
		{"female elder", types.VoiceProfile{Gender: types.GenderFemale, Age: types.AgeElder}, oai.AudioSpeechNewParamsVoiceShimmer},
		{"female child", types.VoiceProfile{Gender: types.GenderFemale, Age: types.AgeChild}, oai.AudioSpeechNewParamsVoiceCoral},
		{"male adult", types.VoiceProfile{Gender: types.GenderMale, Age: types.AgeAdult}, oai.AudioSpeechNewParamsVoiceOnyx},
		{"male elder", types.VoiceProfile{Gender: types.GenderMale, Age: types.AgeElder}, oai.AudioSpeechNewParamsVoiceAsh},
		{"male teen", types.VoiceProfile{Gender: types.GenderMale, Age: types.AgeTeen}, oai.AudioSpeechNewParamsVoiceEcho},
		{"neutral adult", types.VoiceProfile{Gender: types.GenderNeutral, Age: types.AgeAdult}, oai.AudioSpeechNewParamsVoiceAlloy},
		{"neutral elder", types.VoiceProfile{Gender: types.GenderNeutral, Age: types.AgeElder}, oai.AudioSpeechNewParamsVoiceFable},
		{"empty profile", types.VoiceProfile{}, oai.AudioSpeechNewParamsVoiceAlloy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := voiceFor(tt.voice); got != tt.want {
				t.Errorf("voiceFor(%+v) = %q, want %q", tt.voice, got, tt.want)
			}
			// Determinism backs the downstream cache key semantics.
			if again := voiceFor(tt.voice); again != voiceFor(tt.voice) {
				t.Error("voiceFor is not deterministic")
			}
		})
	}
}

func TestInstructionsFor(t *testing.T) {
	t.Parallel()

	if got := instructionsFor(types.VoiceProfile{}); got != "" {
		t.Errorf("instructionsFor(empty) = %q, want empty", got)
	}
	got := instructionsFor(types.VoiceProfile{Tone: "gravelly", Emotion: "menacing"})
	if got != "Speak in a gravelly tone. Convey a menacing mood." {
		t.Errorf("instructionsFor() = %q", got)
	}
	if got := instructionsFor(types.VoiceProfile{Emotion: "amused"}); got != "Convey a amused mood." {
		t.Errorf("instructionsFor(emotion only) = %q", got)
	}
}
