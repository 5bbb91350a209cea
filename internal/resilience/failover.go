package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quillcast/narrator/pkg/provider/scene"
	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/types"
)

// ErrAllProvidersFailed is returned when every entry in a failover chain
// fails or is cooling down.
var ErrAllProvidersFailed = errors.New("resilience: all providers failed")

// entry pairs a named provider value with its breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// chain is the shared ordered-failover mechanism behind [TTSFailover] and
// [SceneFailover].
type chain[T any] struct {
	entries []entry[T]
	cfg     BreakerConfig
}

func newChain[T any](name string, primary T, cfg BreakerConfig) *chain[T] {
	return &chain[T]{
		entries: []entry[T]{{
			name:    name,
			value:   primary,
			breaker: NewBreaker(BreakerConfig{Name: name, TripAfter: cfg.TripAfter, Cooldown: cfg.Cooldown}),
		}},
		cfg: cfg,
	}
}

func (c *chain[T]) add(name string, value T) {
	c.entries = append(c.entries, entry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(BreakerConfig{Name: name, TripAfter: c.cfg.TripAfter, Cooldown: c.cfg.Cooldown}),
	})
}

// call tries fn against each healthy entry in order. The all-failed error
// joins every per-entry error, so sentinel checks like
// errors.Is(err, tts.ErrNoCredentials) still work through the wrapper.
// This is a package-level function because Go does not support method-level
// type parameters.
func call[T any, R any](c *chain[T], fn func(T) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)
	for i := range c.entries {
		e := &c.entries[i]
		if err := e.breaker.Allow(); err != nil {
			slog.Debug("skipping provider (cooling down)", "provider", e.name)
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
			continue
		}
		result, err := fn(e.value)
		e.breaker.Record(err)
		if err == nil {
			return result, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		slog.Warn("provider failed, trying next", "provider", e.name, "err", err)
	}
	return zero, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

// TTSFailover implements [tts.Provider] across an ordered list of backends.
type TTSFailover struct {
	chain *chain[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFailover)(nil)

// NewTTSFailover creates a failover with primary as the preferred backend.
func NewTTSFailover(primaryName string, primary tts.Provider, cfg BreakerConfig) *TTSFailover {
	return &TTSFailover{chain: newChain(primaryName, primary, cfg)}
}

// AddFallback registers an additional backend, tried after earlier entries.
func (f *TTSFailover) AddFallback(name string, p tts.Provider) {
	f.chain.add(name, p)
}

// Synthesize implements tts.Provider, trying each healthy backend in order.
//
// ErrNoCredentials from one backend still counts as that backend's failure
// (the next may have its own working key). When everything fails, the
// joined error preserves per-backend sentinels for callers that surface
// credential problems specially.
func (f *TTSFailover) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error) {
	return call(f.chain, func(p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text, voice)
	})
}

// SceneFailover implements [scene.Provider] across an ordered list of
// backends.
type SceneFailover struct {
	chain *chain[scene.Provider]
}

// Compile-time interface assertion.
var _ scene.Provider = (*SceneFailover)(nil)

// NewSceneFailover creates a failover with primary as the preferred backend.
func NewSceneFailover(primaryName string, primary scene.Provider, cfg BreakerConfig) *SceneFailover {
	return &SceneFailover{chain: newChain(primaryName, primary, cfg)}
}

// AddFallback registers an additional backend, tried after earlier entries.
func (f *SceneFailover) AddFallback(name string, p scene.Provider) {
	f.chain.add(name, p)
}

// BreakdownScene implements scene.Provider, trying each healthy backend in
// order.
func (f *SceneFailover) BreakdownScene(ctx context.Context, text string, roster []types.Character) ([]types.Segment, error) {
	return call(f.chain, func(p scene.Provider) ([]types.Segment, error) {
		return p.BreakdownScene(ctx, text, roster)
	})
}
