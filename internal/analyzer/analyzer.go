// Package analyzer adapts a scene-breakdown provider into the narrator's
// Script model. It owns the three concerns the provider does not: guarding
// empty input, fabricating a fallback script when the breakdown fails, and
// realigning each returned segment against the original source text so the
// editor can highlight it.
package analyzer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/quillcast/narrator/internal/narrator"
	"github.com/quillcast/narrator/internal/observe"
	"github.com/quillcast/narrator/pkg/provider/scene"
	"github.com/quillcast/narrator/pkg/types"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for accepting a
// fuzzy span match when the provider lightly rewrote a segment's text.
const fuzzyThreshold = 0.92

// Analyzer wraps one scene.Provider call per Analyze, degrading locally on
// every failure mode so that playback is never blocked by analysis.
type Analyzer struct {
	provider scene.Provider
	log      *slog.Logger
	metrics  *observe.Metrics
}

// Compile-time assertion that Analyzer satisfies the sequencer's dependency.
var _ narrator.ScriptAnalyzer = (*Analyzer)(nil)

// New creates an Analyzer. logger and metrics must be non-nil.
func New(provider scene.Provider, logger *slog.Logger, metrics *observe.Metrics) *Analyzer {
	return &Analyzer{provider: provider, log: logger, metrics: metrics}
}

// Analyze converts text into a Script.
//
// Empty or whitespace-only input returns [narrator.ErrEmptyText] without
// calling out. Provider failure (transport, parse, empty result) yields a
// single-segment fallback script covering the whole input as neutral
// narration — never an error. Segments whose text cannot be located in the
// source keep a nil span; that degrades highlighting for those segments
// only and aborts nothing.
func (a *Analyzer) Analyze(ctx context.Context, text string, roster []types.Character) (*narrator.Script, error) {
	if strings.TrimSpace(text) == "" {
		return nil, narrator.ErrEmptyText
	}

	// No provider configured: same degradation as a failed breakdown.
	if a.provider == nil {
		a.log.Warn("no scene provider configured, falling back to single-segment narration")
		return fallbackScript(text), nil
	}

	start := time.Now()
	segments, err := a.provider.BreakdownScene(ctx, text, roster)
	a.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	a.metrics.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", "scene"),
		attribute.String("status", statusOf(err)),
	))
	if err != nil || len(segments) == 0 {
		if err != nil {
			a.metrics.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
				attribute.String("kind", "scene"),
			))
		}
		a.log.Warn("scene breakdown failed, falling back to single-segment narration", "err", err)
		return fallbackScript(text), nil
	}

	alignSpans(text, segments)
	return &narrator.Script{Source: text, Segments: segments}, nil
}

// fallbackScript covers the entire input as one neutral narration segment.
func fallbackScript(text string) *narrator.Script {
	return &narrator.Script{
		Source: text,
		Segments: []types.Segment{{
			Text:        text,
			Kind:        types.KindNarration,
			SpeakerName: "Narrator",
			Voice:       types.NeutralVoice,
			Span:        &types.Span{From: 0, To: len(text)},
		}},
		Fallback: true,
	}
}

// alignSpans locates each segment's text inside source, left to right. The
// search cursor only moves forward, so segments map onto non-overlapping
// ranges in reading order. A segment that cannot be located keeps a nil
// span; the cursor stays put so later segments still get a chance.
func alignSpans(source string, segments []types.Segment) {
	cursor := 0
	for i := range segments {
		seg := &segments[i]
		from, to, ok := locate(source, cursor, seg.Text)
		if !ok {
			seg.Span = nil
			continue
		}
		seg.Span = &types.Span{From: from, To: to}
		cursor = to
	}
}

// locate finds needle in source at or after cursor. Exact substring match
// first; if the provider rewrote the text slightly (smart quotes, trimmed
// ellipses), a fuzzy pass compares same-length windows by Jaro-Winkler
// similarity and accepts the best window above fuzzyThreshold.
func locate(source string, cursor int, needle string) (from, to int, ok bool) {
	if needle == "" || cursor >= len(source) {
		return 0, 0, false
	}
	if idx := strings.Index(source[cursor:], needle); idx >= 0 {
		from = cursor + idx
		return from, from + len(needle), true
	}
	return locateFuzzy(source, cursor, needle)
}

// fuzzyStep is the window stride for the fuzzy scan. Scenes are bounded in
// size, so a coarse stride keeps the scan cheap without losing matches —
// the threshold tolerates a few characters of misalignment.
const fuzzyStep = 4

func locateFuzzy(source string, cursor int, needle string) (from, to int, ok bool) {
	n := len(needle)
	tail := source[cursor:]
	if n > len(tail) {
		return 0, 0, false
	}

	best := fuzzyThreshold
	bestAt := -1
	for off := 0; off+n <= len(tail); off += fuzzyStep {
		score := matchr.JaroWinkler(tail[off:off+n], needle, false)
		if score > best {
			best = score
			bestAt = off
		}
	}
	if bestAt < 0 {
		return 0, 0, false
	}
	from = cursor + bestAt
	return from, from + n, true
}

// statusOf maps an error to a metric status label.
func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
