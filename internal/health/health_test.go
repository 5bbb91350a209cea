package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quillcast/narrator/internal/health"
)

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	h := health.New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandler_ReadyzAllPassing(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Check{Name: "a", Probe: func(context.Context) error { return nil }},
		health.Check{Name: "b", Probe: func(context.Context) error { return nil }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Checks["a"] != "ok" || body.Checks["b"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandler_ReadyzFailingCheck(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Check{Name: "good", Probe: func(context.Context) error { return nil }},
		health.Check{Name: "bad", Probe: func(context.Context) error { return errors.New("unreachable") }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want fail", body.Status)
	}
	if body.Checks["good"] != "ok" {
		t.Errorf("passing check = %q, want ok", body.Checks["good"])
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
