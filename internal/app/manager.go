package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillcast/narrator/internal/narrator"
	"github.com/quillcast/narrator/internal/observe"
)

// sweepInterval is how often the janitor scans for idle sessions.
const sweepInterval = time.Minute

// SequencerFactory builds a fresh sequencer for one session. onEvent must
// be installed as the sequencer's event callback so the session can mirror
// state to its subscribers.
type SequencerFactory func(onEvent func(narrator.Event)) *narrator.Sequencer

// ManagerConfig holds the dependencies and tuning for a [Manager].
type ManagerConfig struct {
	Factory     SequencerFactory
	Logger      *slog.Logger
	Metrics     *observe.Metrics
	IdleTimeout time.Duration
	MaxSessions int
}

// Manager owns every live [Session]. It enforces the session cap, evicts
// idle sessions, and guarantees teardown is idempotent.
type Manager struct {
	factory     SequencerFactory
	log         *slog.Logger
	metrics     *observe.Metrics
	idleTimeout time.Duration
	maxSessions int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Call [Manager.Run] to start idle eviction.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		factory:     cfg.Factory,
		log:         cfg.Logger,
		metrics:     cfg.Metrics,
		idleTimeout: cfg.IdleTimeout,
		maxSessions: cfg.MaxSessions,
		sessions:    make(map[string]*Session),
	}
}

// Create allocates a new session with its own sequencer and cache.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	sess := newSession(id)
	sess.Sequencer = m.factory(sess.broadcast)
	m.sessions[id] = sess
	m.mu.Unlock()

	m.metrics.ActiveSessions.Add(ctx, 1)
	m.log.Info("session created", "session", id)
	return sess, nil
}

// Get looks up a session by ID and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.Touch()
	return sess, nil
}

// Close tears down one session and removes it. Unknown IDs are a no-op.
func (m *Manager) Close(ctx context.Context, id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	sess.close()
	m.metrics.ActiveSessions.Add(ctx, -1)
	m.log.Info("session closed", "session", id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run blocks, periodically evicting sessions idle longer than the
// configured timeout, until ctx is cancelled. All remaining sessions are
// torn down on exit.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			m.evictIdle(ctx)
		}
	}
}

func (m *Manager) evictIdle(ctx context.Context) {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*Session
	for id, sess := range m.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			idle = append(idle, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		sess.close()
		m.metrics.ActiveSessions.Add(ctx, -1)
		m.log.Info("session evicted (idle)", "session", sess.ID, "idle_timeout", m.idleTimeout)
	}
}

// CloseAll tears down every live session.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		delete(m.sessions, id)
		all = append(all, sess)
	}
	m.mu.Unlock()

	for _, sess := range all {
		sess.close()
		m.metrics.ActiveSessions.Add(ctx, -1)
	}
	if len(all) > 0 {
		m.log.Info("all sessions closed", "count", len(all))
	}
}
