package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/quillcast/narrator/internal/observe"
	"github.com/quillcast/narrator/pkg/audio"
	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/types"
)

// State is the sequencer's externally visible playback state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Sentinel errors returned by transport operations.
var (
	// ErrEmptyText is returned by Analyze for empty or whitespace-only input.
	ErrEmptyText = errors.New("narrator: scene text is empty")

	// ErrNoScript is returned by Play when no script has been analyzed yet.
	ErrNoScript = errors.New("narrator: no script loaded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("narrator: sequencer closed")
)

// Snapshot is the observable playback state handed to UIs.
type Snapshot struct {
	State     State      `json:"state"`
	Index     int        `json:"index"`
	Playing   bool       `json:"playing"`
	Loading   bool       `json:"loading"`
	Segments  int        `json:"segments"`
	Highlight *Highlight `json:"highlight,omitempty"`
}

// EventKind classifies sequencer events.
type EventKind string

const (
	// EventState signals any observable state change.
	EventState EventKind = "state"

	// EventSegmentStarted signals that a segment began playing; the event
	// carries the segment and its raw audio for client-side mirroring.
	EventSegmentStarted EventKind = "segment_started"

	// EventNotice carries a user-facing message (analysis fallback, missing
	// credentials) that should be shown without interrupting playback.
	EventNotice EventKind = "notice"
)

// Event is one sequencer notification. Snapshot is populated on every event.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot

	// SegmentIndex and Segment are set for EventSegmentStarted.
	SegmentIndex int
	Segment      *types.Segment

	// Audio is the raw PCM of the started segment, set for EventSegmentStarted.
	Audio []byte

	// Notice is the user-facing message, set for EventNotice.
	Notice string
}

// ScriptAnalyzer converts raw scene text plus a character roster into a
// Script. Implementations must degrade internally (fallback script) rather
// than fail for anything but empty input.
type ScriptAnalyzer interface {
	Analyze(ctx context.Context, text string, roster []types.Character) (*Script, error)
}

// SequencerConfig holds the dependencies for a Sequencer.
type SequencerConfig struct {
	Analyzer    ScriptAnalyzer
	Synthesizer *Synthesizer
	Logger      *slog.Logger
	Metrics     *observe.Metrics

	// OnEvent, when non-nil, receives every sequencer event. Called outside
	// the sequencer's lock, but sequentially per originating transition;
	// the callback must not block for long.
	OnEvent func(Event)
}

// Sequencer is the narration playback state machine. It advances through a
// script segment by segment, drives the synthesizer, skips failed segments,
// preloads upcoming audio, and exposes transport controls.
//
// All exported methods are safe for concurrent use. Every attempt to start
// playback of a segment is stamped with a monotonically increasing request
// token; an asynchronous result whose token has been superseded is
// discarded unplayed. That check is what keeps rapid skip/stop input from
// ever producing two simultaneously active audio resources.
type Sequencer struct {
	analyzer ScriptAnalyzer
	synth    *Synthesizer
	log      *slog.Logger
	metrics  *observe.Metrics
	onEvent  func(Event)

	// ctx spans the sequencer's lifetime; playback chains started by
	// transport commands outlive the HTTP request that triggered them.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	script  *Script
	state   State
	index   int
	playing bool
	loading bool
	token   uint64
	active  audio.Handle
	closed  bool
}

// NewSequencer creates an idle Sequencer.
func NewSequencer(cfg SequencerConfig) *Sequencer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sequencer{
		analyzer: cfg.Analyzer,
		synth:    cfg.Synthesizer,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		onEvent:  cfg.OnEvent,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
	}
}

// Analyze installs a script for text and auto-plays it from the beginning.
//
// Calling Analyze again with the exact same source text reuses the existing
// script and its warm audio cache: no analyzer call, no re-synthesis. Any
// other text replaces the script, invalidates the audio cache, and runs the
// scene breakdown (which internally falls back to a single narration
// segment rather than failing).
func (s *Sequencer) Analyze(ctx context.Context, text string, roster []types.Character) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	if s.script != nil && s.script.Source == text {
		token := s.nextTokenLocked()
		s.pauseActiveLocked()
		s.index = 0
		s.playing = true
		s.loading = true
		s.state = StateLoading
		s.mu.Unlock()
		s.emitState()
		go s.playFrom(s.ctx, 0, token)
		return nil
	}

	token := s.nextTokenLocked()
	s.pauseActiveLocked()
	s.playing = false
	s.loading = true
	s.state = StateLoading
	s.mu.Unlock()
	s.emitState()

	script, err := s.analyzer.Analyze(ctx, text, roster)
	if err != nil {
		s.mu.Lock()
		if token == s.token && !s.closed {
			s.loading = false
			if s.script == nil {
				s.state = StateIdle
			} else {
				s.state = StateStopped
			}
		}
		s.mu.Unlock()
		s.emitState()
		return fmt.Errorf("narrator: analyze scene: %w", err)
	}

	s.mu.Lock()
	if s.closed || token != s.token {
		// A later command superseded this analysis; drop it.
		s.mu.Unlock()
		return nil
	}
	s.script = script
	s.index = 0
	s.playing = true
	s.mu.Unlock()

	// The source text changed, so audio synthesized for the prior scene can
	// never be requested again under its old keys.
	s.synth.ClearCache()

	if script.Fallback {
		s.emitNotice("scene analysis failed; narrating the full text in a neutral voice")
	}
	go s.playFrom(s.ctx, 0, token)
	return nil
}

// Play starts or resumes playback.
//
// A paused in-flight audio resource is resumed in place, without
// re-synthesis. Otherwise playback of the current index starts from
// scratch (typically a cache hit if this segment played before).
func (s *Sequencer) Play() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.script.Len() == 0 {
		s.mu.Unlock()
		return ErrNoScript
	}
	if s.playing {
		s.mu.Unlock()
		return nil
	}

	if s.active != nil {
		s.playing = true
		s.state = StatePlaying
		err := s.active.Resume()
		s.mu.Unlock()
		s.emitState()
		return err
	}

	s.playing = true
	s.loading = true
	s.state = StateLoading
	token := s.nextTokenLocked()
	idx := s.index
	s.mu.Unlock()
	s.emitState()
	go s.playFrom(s.ctx, idx, token)
	return nil
}

// Pause halts playback keeping the active audio resource, so Play can
// resume it in place.
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.playing {
		s.mu.Unlock()
		return nil
	}
	s.playing = false
	s.loading = false
	s.state = StatePaused
	if s.active != nil {
		s.active.Pause()
	}
	s.mu.Unlock()
	s.emitState()
	return nil
}

// Stop halts playback, discards the active audio resource, and rewinds to
// the first segment. Safe to call in any state, including after Close.
func (s *Sequencer) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.nextTokenLocked()
	s.pauseActiveLocked()
	s.playing = false
	s.loading = false
	s.index = 0
	if s.script != nil {
		s.state = StateStopped
	}
	s.mu.Unlock()
	s.emitState()
	return nil
}

// SkipForward advances one segment, clamped to the last one.
func (s *Sequencer) SkipForward() {
	s.skip(1)
}

// SkipBackward rewinds one segment, clamped to the first one.
func (s *Sequencer) SkipBackward() {
	s.skip(-1)
}

func (s *Sequencer) skip(delta int) {
	s.mu.Lock()
	if s.closed || s.script.Len() == 0 {
		s.mu.Unlock()
		return
	}
	idx := s.index + delta
	if idx < 0 {
		idx = 0
	}
	if max := s.script.Len() - 1; idx > max {
		idx = max
	}
	s.index = idx

	if !s.playing {
		// Not playing: only the displayed index moves.
		s.mu.Unlock()
		s.emitState()
		return
	}

	// Playing: discard the old segment's audio immediately and start the
	// new index. The fresh token invalidates any in-flight synthesis.
	token := s.nextTokenLocked()
	s.pauseActiveLocked()
	s.loading = true
	s.state = StateLoading
	s.mu.Unlock()
	s.emitState()
	go s.playFrom(s.ctx, idx, token)
}

// ResetCache releases all cached audio and forgets the current script, so
// the next Analyze call re-runs the scene breakdown even for identical text.
func (s *Sequencer) ResetCache() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.nextTokenLocked()
	s.pauseActiveLocked()
	s.script = nil
	s.playing = false
	s.loading = false
	s.index = 0
	s.state = StateIdle
	s.mu.Unlock()

	s.synth.ClearCache()
	s.emitState()
}

// Snapshot returns the current observable state.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ActiveHighlight returns the highlight for the segment being voiced, or
// nil when nothing should be highlighted.
func (s *Sequencer) ActiveHighlight() *Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Project(s.playing, s.script, s.index)
}

// Close tears the sequencer down: playback stops, in-flight results are
// invalidated, and every cached audio resource is released. Idempotent and
// safe to call with no playback active.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.nextTokenLocked()
	s.pauseActiveLocked()
	s.playing = false
	s.loading = false
	s.state = StateStopped
	s.mu.Unlock()

	s.cancel()
	s.synth.ClearCache()
}

// ── internals ────────────────────────────────────────────────────────────────

// nextTokenLocked mints a new request token, invalidating every outstanding
// asynchronous result. Caller must hold s.mu.
func (s *Sequencer) nextTokenLocked() uint64 {
	s.token++
	return s.token
}

// pauseActiveLocked pauses and detaches the active handle. The handle is
// not released — the cache owns its lifetime, and a later replay of the
// same segment resumes from a warm Play. Caller must hold s.mu.
func (s *Sequencer) pauseActiveLocked() {
	if s.active != nil {
		s.active.Pause()
		s.active = nil
	}
}

// playFrom walks the script from start, synthesizing and starting the first
// playable segment and skipping failed ones. It returns after starting one
// segment (completion chaining re-enters it via handleEnded) or after
// reaching the end of the script.
func (s *Sequencer) playFrom(ctx context.Context, start int, token uint64) {
	for idx := start; ; idx++ {
		s.mu.Lock()
		if s.closed || token != s.token || !s.playing {
			s.mu.Unlock()
			return
		}
		script := s.script
		if idx >= script.Len() {
			// End of playlist: stop and rewind. Playback never loops.
			s.pauseActiveLocked()
			s.playing = false
			s.loading = false
			s.index = 0
			s.state = StateStopped
			s.mu.Unlock()
			s.emitState()
			return
		}
		seg := script.Segments[idx]
		s.index = idx
		s.loading = true
		s.state = StateLoading
		s.mu.Unlock()
		s.emitState()

		clip, err := s.synth.Synthesize(ctx, seg.Text, seg.Voice)
		if err != nil {
			s.log.Warn("segment synthesis failed, skipping",
				"segment", idx, "speaker", seg.SpeakerName, "err", err)
			s.metrics.SegmentsSkipped.Add(ctx, 1)
			if errors.Is(err, tts.ErrNoCredentials) {
				s.emitNotice("speech synthesis credentials are missing or rejected; check the TTS provider configuration")
			}
			continue
		}

		s.mu.Lock()
		if s.closed || token != s.token || !s.playing {
			// A newer request won the race while synthesis was in flight.
			// The clip stays cached for later, but it must not play now.
			s.mu.Unlock()
			return
		}
		s.pauseActiveLocked()
		s.active = clip.Handle
		s.loading = false
		s.state = StatePlaying
		clip.Handle.OnEnded(func() { s.handleEnded(ctx, token, idx) })
		clip.Handle.OnError(func(err error) { s.handleError(ctx, token, idx, err) })
		playErr := clip.Handle.Play()
		if playErr != nil {
			s.active = nil
			s.mu.Unlock()
			s.log.Warn("segment playback failed to start, skipping",
				"segment", idx, "err", playErr)
			s.metrics.SegmentsSkipped.Add(ctx, 1)
			continue
		}
		s.mu.Unlock()

		s.metrics.SegmentsPlayed.Add(ctx, 1)
		s.emitState()
		s.emitSegment(idx, seg, clip.Data)

		// Warm the cache for the next segment. Failures stay invisible here
		// and resurface, if at all, when the segment actually plays.
		if next, ok := script.Segment(idx + 1); ok {
			go func() {
				if _, err := s.synth.Synthesize(ctx, next.Text, next.Voice); err != nil {
					s.log.Debug("preload failed", "segment", idx+1, "err", err)
				}
			}()
		}
		return
	}
}

// handleEnded is the completion-chaining callback: when the active segment
// finishes naturally and this attempt is still current, advance to the next
// segment.
func (s *Sequencer) handleEnded(ctx context.Context, token uint64, idx int) {
	s.mu.Lock()
	if s.closed || token != s.token || !s.playing || s.index != idx {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.mu.Unlock()
	s.playFrom(ctx, idx+1, token)
}

// handleError applies the same skip-forward recovery as a synthesis failure
// when the active audio resource errors mid-playback.
func (s *Sequencer) handleError(ctx context.Context, token uint64, idx int, err error) {
	s.mu.Lock()
	if s.closed || token != s.token || !s.playing || s.index != idx {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.mu.Unlock()

	s.log.Warn("segment playback error, skipping", "segment", idx, "err", err)
	s.metrics.SegmentsSkipped.Add(ctx, 1)
	s.playFrom(ctx, idx+1, token)
}

// snapshotLocked builds a Snapshot. Caller must hold s.mu.
func (s *Sequencer) snapshotLocked() Snapshot {
	return Snapshot{
		State:     s.state,
		Index:     s.index,
		Playing:   s.playing,
		Loading:   s.loading,
		Segments:  s.script.Len(),
		Highlight: Project(s.playing, s.script, s.index),
	}
}

// ── event emission (always outside the lock) ─────────────────────────────────

func (s *Sequencer) emitState() {
	if s.onEvent == nil {
		return
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onEvent(Event{Kind: EventState, Snapshot: snap})
}

func (s *Sequencer) emitSegment(idx int, seg types.Segment, data []byte) {
	if s.onEvent == nil {
		return
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onEvent(Event{
		Kind:         EventSegmentStarted,
		Snapshot:     snap,
		SegmentIndex: idx,
		Segment:      &seg,
		Audio:        data,
	})
}

func (s *Sequencer) emitNotice(msg string) {
	if s.onEvent == nil {
		return
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.onEvent(Event{Kind: EventNotice, Snapshot: snap, Notice: msg})
}
