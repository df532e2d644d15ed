package rest

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"schoolsched/internal/service/scheduling"
)

func TestRateLimiter_RejectsBurstOverflowPerClient(t *testing.T) {
	var logs bytes.Buffer
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:   rate.Limit(0.5),
		Burst:  2,
		Logger: slog.New(slog.NewJSONHandler(&logs, nil)),
	})
	t.Cleanup(rl.Stop)

	h := NewRouter(RouterDeps{
		Service: &fakeService{
			statsFn: func(ctx context.Context) (scheduling.Stats, error) { return scheduling.Stats{}, nil },
		},
		Logger:      slog.New(slog.NewTextHandler(discard{}, nil)),
		RateLimiter: rl,
	})

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard-stats", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := call("10.0.0.1:4000"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
	w := call("10.0.0.1:4001")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") != "2" {
		t.Fatalf("Retry-After = %q, want 2", w.Header().Get("Retry-After"))
	}
	if !strings.Contains(logs.String(), `"component":"http.ratelimit"`) ||
		!strings.Contains(logs.String(), `"client":"10.0.0.1"`) {
		t.Fatalf("log = %s, want rate limit warning on the injected logger", logs.String())
	}

	if w := call("10.0.0.2:4000"); w.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", w.Code)
	}
	if rl.Len() != 2 {
		t.Fatalf("limiters = %d, want 2", rl.Len())
	}
}

func TestRateLimiter_SkipsHealthAndNilLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(0.001), Burst: 1})
	t.Cleanup(rl.Stop)

	h := NewRouter(RouterDeps{
		Service:     &fakeService{},
		Logger:      slog.New(slog.NewTextHandler(discard{}, nil)),
		RateLimiter: rl,
	})
	for i := 0; i < 3; i++ {
		if w := do(t, h, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
			t.Fatalf("healthz status = %d, want 200", w.Code)
		}
	}

	var nilLimiter *RateLimiter
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	w := httptest.NewRecorder()
	nilLimiter.Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("nil limiter status = %d, want passthrough", w.Code)
	}
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)

	rl.limiter("10.0.0.1")
	rl.cleanup(time.Now())
	if rl.Len() != 1 {
		t.Fatalf("limiters = %d, want 1 before ttl", rl.Len())
	}

	rl.cleanup(time.Now().Add(3 * time.Hour))
	if rl.Len() != 0 {
		t.Fatalf("limiters = %d, want 0 after ttl", rl.Len())
	}
}
