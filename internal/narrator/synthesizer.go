package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/quillcast/narrator/internal/observe"
	"github.com/quillcast/narrator/pkg/audio"
	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/types"
)

// Synthesizer produces a playable clip for one segment's (text, voice) pair,
// consulting the session cache first. Cache misses issue exactly one remote
// synthesis call; concurrent requests for the identical key are collapsed
// onto a single in-flight call.
//
// Safe for concurrent use.
type Synthesizer struct {
	provider tts.Provider
	player   audio.Player
	cache    *SynthesisCache
	metrics  *observe.Metrics
	log      *slog.Logger

	flight singleflight.Group
}

// NewSynthesizer creates a Synthesizer. logger and metrics must be non-nil;
// use slog.Default() and observe.Discard() when no real sinks are wired.
func NewSynthesizer(provider tts.Provider, player audio.Player, cache *SynthesisCache, logger *slog.Logger, metrics *observe.Metrics) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		player:   player,
		cache:    cache,
		metrics:  metrics,
		log:      logger,
	}
}

// Cache returns the synthesis cache owned by this synthesizer.
func (s *Synthesizer) Cache() *SynthesisCache {
	return s.cache
}

// ClearCache releases all cached audio. Safe to call at any time, including
// during in-flight synthesis and from teardown paths.
func (s *Synthesizer) ClearCache() {
	s.cache.Clear()
}

// Synthesize returns a playable clip for (text, voice). On a cache hit the
// clip is returned immediately with no remote call. On a miss exactly one
// provider request is issued, and the result is stored before returning.
//
// Every failure mode — missing credentials, transport errors, malformed
// responses, undecodable audio — surfaces as a non-nil error; the caller
// (the sequencer) owns the recovery policy.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (*Clip, error) {
	if clip := s.cache.Get(text, voice); clip != nil {
		s.metrics.CacheHits.Add(ctx, 1)
		return clip, nil
	}
	s.metrics.CacheMisses.Add(ctx, 1)

	key := flightKey(text, voice)
	v, err, _ := s.flight.Do(key, func() (any, error) {
		// Another flight may have populated the cache while we queued.
		if clip := s.cache.Get(text, voice); clip != nil {
			return clip, nil
		}
		return s.synthesizeRemote(ctx, text, voice)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Clip), nil
}

// synthesizeRemote performs the provider call, loads the audio, and caches
// the resulting clip.
func (s *Synthesizer) synthesizeRemote(ctx context.Context, text string, voice types.VoiceProfile) (*Clip, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("synthesize: no provider configured: %w", tts.ErrNoCredentials)
	}

	// Request shape log, for diagnosing oversized or empty payloads.
	s.log.Debug("synthesis request",
		"text_bytes", len(text),
		"gender", voice.Gender,
		"age", voice.Age,
		"tone", voice.Tone,
		"emotion", voice.Emotion,
	)

	start := time.Now()
	data, err := s.provider.Synthesize(ctx, text, voice)
	s.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", "tts"),
		attribute.String("status", statusOf(err)),
	))
	if err != nil {
		s.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", "tts"),
		))
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	handle, err := s.player.Load(data)
	if err != nil {
		return nil, fmt.Errorf("synthesize: load audio: %w", err)
	}

	clip := &Clip{Handle: handle, Data: data}
	s.cache.Put(text, voice, clip)
	return clip, nil
}

// flightKey builds the singleflight key for a (text, voice) pair. The NUL
// separator cannot appear inside profile fields coming from YAML or JSON.
func flightKey(text string, voice types.VoiceProfile) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s\x00%g\x00%g",
		text, voice.Gender, voice.Age, voice.Tone, voice.Emotion, voice.Pitch, voice.Speed)
}

// statusOf maps an error to a metric status label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, tts.ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, tts.ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
