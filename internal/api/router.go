package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/iconidentify/fbgrab/internal/api/handler"
	mw "github.com/iconidentify/fbgrab/internal/api/middleware"
)

// RouterConfig holds the router's tunables.
type RouterConfig struct {
	CORSOrigins  []string
	ProcessRate  float64 // requests per second on POST /api/process, <= 0 disables
	ProcessBurst int
	PageTimeout  time.Duration
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	processHandler *handler.ProcessHandler,
	proxyHandler *handler.ProxyHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
	cfg RouterConfig,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(cfg.CORSOrigins))

	// Pages and probes answer quickly or not at all
	timeout := func(next http.Handler) http.Handler { return next }
	if cfg.PageTimeout > 0 {
		timeout = middleware.Timeout(cfg.PageTimeout)
	}

	r.With(timeout).Get("/", uiHandler.Index)
	r.With(timeout).Get("/health", healthHandler.Live)
	r.With(timeout).Get("/ready", healthHandler.Ready)

	// Backend-facing routes run until the backend answers or the client goes away
	r.Route("/api", func(r chi.Router) {
		r.With(timeout).Get("/stats", healthHandler.Stats)

		r.With(mw.RateLimit(rate.Limit(cfg.ProcessRate), cfg.ProcessBurst)).
			Post("/process", processHandler.Process)

		r.Get("/download/{id}", proxyHandler.Download)
		r.Get("/thumbnail/{id}", proxyHandler.Thumbnail)
	})

	return r
}
