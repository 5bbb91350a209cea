// Package gateway is the narrator's HTTP surface: session lifecycle, the
// transport-control REST routes, the WebSocket event stream, and the
// operational endpoints (metrics, health).
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillcast/narrator/internal/app"
	"github.com/quillcast/narrator/internal/health"
	"github.com/quillcast/narrator/internal/narrator"
	"github.com/quillcast/narrator/internal/observe"
	"github.com/quillcast/narrator/pkg/types"
)

// Config holds the dependencies for a [Gateway].
type Config struct {
	Sessions *app.Manager
	Health   *health.Handler
	Metrics  *observe.Metrics
	Logger   *slog.Logger
}

// Gateway routes HTTP requests to narration sessions.
type Gateway struct {
	sessions *app.Manager
	health   *health.Handler
	metrics  *observe.Metrics
	log      *slog.Logger
}

// New creates a Gateway.
func New(cfg Config) *Gateway {
	return &Gateway{
		sessions: cfg.Sessions,
		health:   cfg.Health,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
	}
}

// Handler builds the full route table, wrapped in the request-duration
// middleware.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sessions", g.createSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", g.deleteSession)
	mux.HandleFunc("GET /v1/sessions/{id}/state", g.state)
	mux.HandleFunc("GET /v1/sessions/{id}/events", g.events)
	mux.HandleFunc("POST /v1/sessions/{id}/narrate", g.narrate)
	mux.HandleFunc("POST /v1/sessions/{id}/play", g.transport((*narrator.Sequencer).Play))
	mux.HandleFunc("POST /v1/sessions/{id}/pause", g.transport((*narrator.Sequencer).Pause))
	mux.HandleFunc("POST /v1/sessions/{id}/stop", g.transport((*narrator.Sequencer).Stop))
	mux.HandleFunc("POST /v1/sessions/{id}/next", g.skip((*narrator.Sequencer).SkipForward))
	mux.HandleFunc("POST /v1/sessions/{id}/previous", g.skip((*narrator.Sequencer).SkipBackward))
	mux.HandleFunc("POST /v1/sessions/{id}/cache/reset", g.resetCache)

	mux.Handle("GET /metrics", promhttp.Handler())
	g.health.Register(mux)

	return observe.Middleware(g.metrics)(mux)
}

// sessionResponse is the JSON body for session creation and state reads.
type sessionResponse struct {
	ID    string            `json:"id"`
	State narrator.Snapshot `json:"state"`
}

// narrateRequest is the JSON body accepted by the narrate route.
type narrateRequest struct {
	// Text is the raw scene text to narrate.
	Text string `json:"text"`

	// Characters is the roster used to assign voices to speakers.
	Characters []types.Character `json:"characters"`
}

func (g *Gateway) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := g.sessions.Create(r.Context())
	if err != nil {
		g.writeError(w, err)
		return
	}
	g.writeJSON(w, http.StatusCreated, sessionResponse{
		ID:    sess.ID,
		State: sess.Sequencer.Snapshot(),
	})
}

func (g *Gateway) deleteSession(w http.ResponseWriter, r *http.Request) {
	g.sessions.Close(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) state(w http.ResponseWriter, r *http.Request) {
	sess, err := g.sessions.Get(r.PathValue("id"))
	if err != nil {
		g.writeError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, sessionResponse{
		ID:    sess.ID,
		State: sess.Sequencer.Snapshot(),
	})
}

func (g *Gateway) narrate(w http.ResponseWriter, r *http.Request) {
	sess, err := g.sessions.Get(r.PathValue("id"))
	if err != nil {
		g.writeError(w, err)
		return
	}

	var req narrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}

	if err := sess.Sequencer.Analyze(r.Context(), req.Text, req.Characters); err != nil {
		g.writeError(w, err)
		return
	}
	g.writeJSON(w, http.StatusAccepted, sessionResponse{
		ID:    sess.ID,
		State: sess.Sequencer.Snapshot(),
	})
}

// transport adapts a sequencer method returning error into a route handler.
func (g *Gateway) transport(op func(*narrator.Sequencer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := g.sessions.Get(r.PathValue("id"))
		if err != nil {
			g.writeError(w, err)
			return
		}
		if err := op(sess.Sequencer); err != nil {
			g.writeError(w, err)
			return
		}
		g.writeJSON(w, http.StatusOK, sessionResponse{
			ID:    sess.ID,
			State: sess.Sequencer.Snapshot(),
		})
	}
}

// skip adapts the error-free skip methods into a route handler.
func (g *Gateway) skip(op func(*narrator.Sequencer)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := g.sessions.Get(r.PathValue("id"))
		if err != nil {
			g.writeError(w, err)
			return
		}
		op(sess.Sequencer)
		g.writeJSON(w, http.StatusOK, sessionResponse{
			ID:    sess.ID,
			State: sess.Sequencer.Snapshot(),
		})
	}
}

func (g *Gateway) resetCache(w http.ResponseWriter, r *http.Request) {
	sess, err := g.sessions.Get(r.PathValue("id"))
	if err != nil {
		g.writeError(w, err)
		return
	}
	sess.Sequencer.ResetCache()
	g.writeJSON(w, http.StatusOK, sessionResponse{
		ID:    sess.ID,
		State: sess.Sequencer.Snapshot(),
	})
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels onto HTTP status codes.
func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrTooManySessions):
		status = http.StatusTooManyRequests
	case errors.Is(err, narrator.ErrEmptyText):
		status = http.StatusBadRequest
	case errors.Is(err, narrator.ErrNoScript):
		status = http.StatusConflict
	case errors.Is(err, narrator.ErrClosed):
		status = http.StatusGone
	}
	g.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.log.Debug("response encode failed", "err", err)
	}
}
