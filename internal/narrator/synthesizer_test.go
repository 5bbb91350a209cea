package narrator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/quillcast/narrator/internal/narrator"
	"github.com/quillcast/narrator/internal/observe"
	audiomock "github.com/quillcast/narrator/pkg/audio/mock"
	"github.com/quillcast/narrator/pkg/provider/tts"
	ttsmock "github.com/quillcast/narrator/pkg/provider/tts/mock"
	"github.com/quillcast/narrator/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSynthesizer(provider tts.Provider) (*narrator.Synthesizer, *audiomock.Player, *narrator.SynthesisCache) {
	player := &audiomock.Player{}
	cache := narrator.NewSynthesisCache()
	synth := narrator.NewSynthesizer(provider, player, cache, testLogger(), observe.Discard())
	return synth, player, cache
}

func TestSynthesizer_CacheHitSkipsProvider(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{}
	synth, player, cache := newTestSynthesizer(provider)

	warm := loadClip(t, player, "warm")
	cache.Put("hello", types.NeutralVoice, warm)

	clip, err := synth.Synthesize(context.Background(), "hello", types.NeutralVoice)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if clip != warm {
		t.Error("expected the cached clip back")
	}
	if provider.CallCount() != 0 {
		t.Errorf("provider calls = %d, want 0 on a cache hit", provider.CallCount())
	}
}

func TestSynthesizer_MissCallsProviderOnceAndCaches(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Audio: []byte("pcm-bytes")}
	synth, player, cache := newTestSynthesizer(provider)

	clip, err := synth.Synthesize(context.Background(), "hello", types.NeutralVoice)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if string(clip.Data) != "pcm-bytes" {
		t.Errorf("clip.Data = %q, want %q", clip.Data, "pcm-bytes")
	}
	if provider.CallCount() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.CallCount())
	}
	if player.HandleCount() != 1 {
		t.Errorf("handles loaded = %d, want 1", player.HandleCount())
	}
	if cache.Get("hello", types.NeutralVoice) != clip {
		t.Error("clip should be cached after a miss")
	}

	// Second call is now a hit.
	again, err := synth.Synthesize(context.Background(), "hello", types.NeutralVoice)
	if err != nil {
		t.Fatalf("second Synthesize() error: %v", err)
	}
	if again != clip || provider.CallCount() != 1 {
		t.Error("second call should be served from cache without a provider call")
	}
}

func TestSynthesizer_ConcurrentRequestsCollapse(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	provider := &ttsmock.Provider{Gate: gate}
	synth, _, _ := newTestSynthesizer(provider)

	const goroutines = 4
	clips := make([]*narrator.Clip, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clips[i], errs[i] = synth.Synthesize(context.Background(), "same line", types.NeutralVoice)
		}(i)
	}

	// Let the goroutines pile onto the in-flight call, then release it.
	deadline := time.Now().Add(2 * time.Second)
	for provider.CallCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	if provider.CallCount() != 1 {
		t.Fatalf("provider calls = %d, want exactly 1 for concurrent identical requests", provider.CallCount())
	}
	for i := 0; i < goroutines; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d error: %v", i, errs[i])
		}
		if clips[i] != clips[0] {
			t.Error("all goroutines should receive the same clip")
		}
	}
}

func TestSynthesizer_ProviderErrorPropagates(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Err: tts.ErrNoCredentials}
	synth, player, cache := newTestSynthesizer(provider)

	_, err := synth.Synthesize(context.Background(), "hello", types.NeutralVoice)
	if !errors.Is(err, tts.ErrNoCredentials) {
		t.Fatalf("Synthesize() error = %v, want ErrNoCredentials", err)
	}
	if player.HandleCount() != 0 {
		t.Error("no handle should be loaded on provider failure")
	}
	if cache.Len() != 0 {
		t.Error("failures must not be cached")
	}
}

func TestSynthesizer_LoadErrorPropagates(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{}
	player := &audiomock.Player{LoadErr: errors.New("decode failed")}
	cache := narrator.NewSynthesisCache()
	synth := narrator.NewSynthesizer(provider, player, cache, testLogger(), observe.Discard())

	_, err := synth.Synthesize(context.Background(), "hello", types.NeutralVoice)
	if err == nil {
		t.Fatal("Synthesize() should fail when the player cannot load the audio")
	}
	if cache.Len() != 0 {
		t.Error("failed loads must not be cached")
	}
}

func TestSynthesizer_NilProviderFailsWithNoCredentials(t *testing.T) {
	t.Parallel()

	synth, _, _ := newTestSynthesizer(nil)

	_, err := synth.Synthesize(context.Background(), "hello", types.NeutralVoice)
	if !errors.Is(err, tts.ErrNoCredentials) {
		t.Fatalf("Synthesize() error = %v, want ErrNoCredentials for a nil provider", err)
	}
}
