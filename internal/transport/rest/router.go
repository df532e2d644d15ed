package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Service SchedulingService
	Logger  *slog.Logger

	// Optional.
	Metrics        HTTPMetrics
	MetricsHandler http.Handler
	RateLimiter    *RateLimiter
	Health         func(ctx context.Context) error

	CORSAllowedOrigin string
	RequestTimeout    time.Duration
}

// NewRouter wires the scheduling API. Middleware order, outermost first:
//
//	requestID → RealIP → accessLog → instrument → recoverer → cors
//
// The /api group adds the rate limiter and the request timeout.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	h := NewHandler(deps.Service, log)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(log.With(slog.String("component", "http"))))
	if deps.Metrics != nil {
		r.Use(instrument(deps.Metrics))
	}
	r.Use(recoverer(log))
	r.Use(cors(deps.CORSAllowedOrigin))

	r.Get("/healthz", health(log.With(slog.String("component", "http.health")), deps.Health))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware)
		r.Use(requestTimeout(deps.RequestTimeout))

		r.Get("/dashboard-stats", h.DashboardStats)

		r.Route("/classrooms", func(r chi.Router) {
			r.Get("/", h.ListClassrooms)
			r.Post("/", h.AddClassroom)
			r.Get("/{name}", h.GetClassroom)
			r.Delete("/{name}", h.DeleteClassroom)
		})

		r.Route("/classes", func(r chi.Router) {
			r.Get("/", h.ListClasses)
			r.Post("/", h.AddClass)
			r.Get("/{id}", h.GetClass)
			r.Delete("/{id}", h.DeleteClass)
		})
	})

	return r
}

func health(log *slog.Logger, check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Warn("health check failed", slog.Any("err", err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
