package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/murphbot/bot"
	"github.com/onnwee/murphbot/cooldown"
	"github.com/onnwee/murphbot/queue"
)

func newTestMux(t *testing.T) (http.Handler, *queue.Manager) {
	t.Helper()
	q := queue.NewManager(queue.Options{Capacity: 5, TeamSize: 2})
	cd := cooldown.NewManager(cooldown.Options{})
	h := NewHandlers(nil, q, cd, bot.NewStats())
	return NewMux(h), q
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestReadyzWithoutDatabase(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ready" {
		t.Fatalf("status field = %q, want %q", body["status"], "ready")
	}
}

func TestStatusReportsQueueDepth(t *testing.T) {
	mux, q := newTestMux(t)
	q.Join("alice")
	q.Join("bob")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["queue_main"] != float64(2) {
		t.Errorf("queue_main = %v, want 2", body["queue_main"])
	}
	if body["team_size"] != float64(2) {
		t.Errorf("team_size = %v, want 2", body["team_size"])
	}
	if body["persistence"] != false {
		t.Errorf("persistence = %v, want false", body["persistence"])
	}
}

func TestStatusRejectsNonGet(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestCorrelationIDPropagation(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Fatalf("correlation id = %q, want %q", got, "abc-123")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("correlation id not generated")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
