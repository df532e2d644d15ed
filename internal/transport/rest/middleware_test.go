package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"schoolsched/internal/domain"
	"schoolsched/internal/service/scheduling"
)

type recordedRequest struct {
	method, route string
	status        int
}

type fakeHTTPMetrics struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (f *fakeHTTPMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedRequest{method: method, route: route, status: status})
}

func TestAccessLog_WritesRouteStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	h := NewRouter(RouterDeps{
		Service: &fakeService{
			getClassFn: func(ctx context.Context, id int64) (domain.ClassSession, error) {
				return domain.ClassSession{}, &scheduling.NotFoundError{Kind: "class", Key: "5"}
			},
		},
		Logger: log,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/classes/5", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("X-Request-ID = %q, want req-123", w.Header().Get(requestIDHeader))
	}

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e map[string]any
		if err := json.Unmarshal(line, &e); err != nil {
			t.Fatalf("parse log line %q: %v", line, err)
		}
		if e["msg"] == "http_request" {
			entry = e
		}
	}
	if entry == nil {
		t.Fatalf("no http_request line in %s", buf.String())
	}
	if entry["level"] != "WARN" {
		t.Fatalf("level = %v, want WARN for 404", entry["level"])
	}
	if entry["route"] != "/api/classes/{id}" {
		t.Fatalf("route = %v, want /api/classes/{id}", entry["route"])
	}
	if entry["status"].(float64) != http.StatusNotFound {
		t.Fatalf("status = %v, want 404", entry["status"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("request_id = %v, want req-123", entry["request_id"])
	}
}

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	h := newTestRouter(&fakeService{})

	w := do(t, h, http.MethodGet, "/healthz", "")
	if len(w.Header().Get(requestIDHeader)) != 36 {
		t.Fatalf("X-Request-ID = %q, want a uuid", w.Header().Get(requestIDHeader))
	}
}

func TestInstrument_RecordsRoutePattern(t *testing.T) {
	m := &fakeHTTPMetrics{}
	h := NewRouter(RouterDeps{
		Service: &fakeService{
			deleteClassFn: func(ctx context.Context, id int64) error { return nil },
		},
		Logger:  slog.New(slog.NewTextHandler(discard{}, nil)),
		Metrics: m,
	})

	do(t, h, http.MethodDelete, "/api/classes/9", "")

	if len(m.seen) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(m.seen))
	}
	got := m.seen[0]
	if got.method != http.MethodDelete || got.route != "/api/classes/{id}" || got.status != http.StatusOK {
		t.Fatalf("recorded %+v", got)
	}
}

func TestRecoverer_Returns500(t *testing.T) {
	h := newTestRouter(&fakeService{})

	// ListClassrooms is not configured on the fake and panics.
	w := do(t, h, http.MethodGet, "/api/classrooms", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestCORS_PreflightAndOrigin(t *testing.T) {
	h := NewRouter(RouterDeps{
		Service:           &fakeService{},
		Logger:            slog.New(slog.NewTextHandler(discard{}, nil)),
		CORSAllowedOrigin: "https://school.example",
	})

	w := do(t, h, http.MethodOptions, "/api/classes", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://school.example" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestRequestTimeout_Returns503(t *testing.T) {
	h := NewRouter(RouterDeps{
		Service: &fakeService{
			statsFn: func(ctx context.Context) (scheduling.Stats, error) {
				<-ctx.Done()
				return scheduling.Stats{}, ctx.Err()
			},
		},
		Logger:         slog.New(slog.NewTextHandler(discard{}, nil)),
		RequestTimeout: 20 * time.Millisecond,
	})

	w := do(t, h, http.MethodGet, "/api/dashboard-stats", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHealth_ReportsCheckFailure(t *testing.T) {
	var logs bytes.Buffer
	h := NewRouter(RouterDeps{
		Service: &fakeService{},
		Logger:  slog.New(slog.NewJSONHandler(&logs, nil)),
		Health:  func(ctx context.Context) error { return context.DeadlineExceeded },
	})

	w := do(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"msg":"health check failed"`)) ||
		!bytes.Contains(logs.Bytes(), []byte(`"component":"http.health"`)) {
		t.Fatalf("log = %s, want health failure on the injected logger", logs.String())
	}
}
