package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeProbe is a configurable HealthProbe for tests.
type fakeProbe struct {
	name string
	err  error
}

func (p fakeProbe) Name() string                  { return p.name }
func (p fakeProbe) Check(_ context.Context) error { return p.err }

type panickyProbe struct{}

func (panickyProbe) Name() string                  { return "flaky" }
func (panickyProbe) Check(_ context.Context) error { panic("probe exploded") }

func TestHandleHealth_AllHealthy(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		fakeProbe{name: "database"},
		fakeProbe{name: "weather"},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body healthResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
	if body.Components["database"].Status != "healthy" {
		t.Errorf("expected database healthy, got %+v", body.Components["database"])
	}
}

func TestHandleHealth_UnhealthyProbe(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		fakeProbe{name: "database", err: errors.New("pool exhausted")},
		fakeProbe{name: "weather"},
	}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	var body healthResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", body.Status)
	}
	if body.Components["database"].Message != "pool exhausted" {
		t.Errorf("expected failure message, got %+v", body.Components["database"])
	}
	if body.Components["weather"].Status != "healthy" {
		t.Errorf("healthy probe should stay healthy, got %+v", body.Components["weather"])
	}
}

func TestHandleHealth_PanickingProbe(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{panickyProbe{}}

	w := httptest.NewRecorder()
	s.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when a probe panics, got %d", w.Result().StatusCode)
	}
}
