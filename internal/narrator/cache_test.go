package narrator_test

import (
	"testing"

	"github.com/quillcast/narrator/internal/narrator"
	audiomock "github.com/quillcast/narrator/pkg/audio/mock"
	"github.com/quillcast/narrator/pkg/types"
)

func loadClip(t *testing.T, p *audiomock.Player, data string) *narrator.Clip {
	t.Helper()
	h, err := p.Load([]byte(data))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return &narrator.Clip{Handle: h, Data: []byte(data)}
}

func TestSynthesisCache_GetPut(t *testing.T) {
	t.Parallel()

	player := &audiomock.Player{}
	cache := narrator.NewSynthesisCache()

	if got := cache.Get("hello", types.NeutralVoice); got != nil {
		t.Fatalf("Get() on empty cache = %v, want nil", got)
	}

	clip := loadClip(t, player, "pcm")
	cache.Put("hello", types.NeutralVoice, clip)

	if got := cache.Get("hello", types.NeutralVoice); got != clip {
		t.Fatalf("Get() = %v, want the stored clip", got)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestSynthesisCache_VoiceDistinguishesEntries(t *testing.T) {
	t.Parallel()

	player := &audiomock.Player{}
	cache := narrator.NewSynthesisCache()

	calm := types.VoiceProfile{Gender: types.GenderFemale, Age: types.AgeAdult, Emotion: "calm"}
	angry := calm
	angry.Emotion = "angry"

	cache.Put("line", calm, loadClip(t, player, "calm-pcm"))

	if got := cache.Get("line", angry); got != nil {
		t.Fatalf("Get() with different emotion = %v, want nil", got)
	}

	cache.Put("line", angry, loadClip(t, player, "angry-pcm"))
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2 distinct entries", cache.Len())
	}
}

func TestSynthesisCache_PutReleasesDisplacedClip(t *testing.T) {
	t.Parallel()

	player := &audiomock.Player{}
	cache := narrator.NewSynthesisCache()

	first := loadClip(t, player, "first")
	second := loadClip(t, player, "second")

	cache.Put("line", types.NeutralVoice, first)
	cache.Put("line", types.NeutralVoice, second)

	if !player.HandleAt(0).Released() {
		t.Error("displaced clip's handle should be released")
	}
	if player.HandleAt(1).Released() {
		t.Error("winning clip's handle must stay alive")
	}
	if got := cache.Get("line", types.NeutralVoice); got != second {
		t.Errorf("Get() = %v, want the last written clip", got)
	}
}

func TestSynthesisCache_ClearReleasesAll(t *testing.T) {
	t.Parallel()

	player := &audiomock.Player{}
	cache := narrator.NewSynthesisCache()

	cache.Put("a", types.NeutralVoice, loadClip(t, player, "a"))
	cache.Put("b", types.NeutralVoice, loadClip(t, player, "b"))

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", cache.Len())
	}
	for i := 0; i < player.HandleCount(); i++ {
		if !player.HandleAt(i).Released() {
			t.Errorf("handle %d not released after Clear", i)
		}
	}

	// Second Clear is a no-op, not a panic.
	cache.Clear()

	// The cache stays usable after Clear.
	cache.Put("c", types.NeutralVoice, loadClip(t, player, "c"))
	if cache.Len() != 1 {
		t.Errorf("Len() after repopulating = %d, want 1", cache.Len())
	}
}
