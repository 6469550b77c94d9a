// Package router assembles the HTTP surface: the WhatsApp webhook, the
// synchronous chat endpoint and the operator read endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/elsastre/luisa/internal/http/handlers"
	httpmiddleware "github.com/elsastre/luisa/internal/http/middleware"
	"github.com/elsastre/luisa/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Webhook            *handlers.WebhookHandler
	Chat               *handlers.ChatHandler
	Ops                *handlers.OpsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	OpsRatePerSecond   float64
	OpsBurst           int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Webhook != nil {
		r.Get("/webhook", cfg.Webhook.Verify)
		r.Post("/webhook", cfg.Webhook.Ingest)
	}

	// The chat and ops endpoints sit behind a per-IP limiter; the webhook
	// has its own per-sender window instead.
	rate := cfg.OpsRatePerSecond
	if rate <= 0 {
		rate = 5
	}
	burst := cfg.OpsBurst
	if burst <= 0 {
		burst = 10
	}
	r.Group(func(protected chi.Router) {
		protected.Use(httpmiddleware.RateLimit(rate, burst))

		if cfg.Chat != nil {
			protected.Post("/chat", cfg.Chat.Handle)
		}
		if cfg.Ops != nil {
			protected.Route("/ops", func(ops chi.Router) {
				ops.Get("/snapshot", cfg.Ops.Snapshot)
				ops.Get("/handoffs", cfg.Ops.Handoffs)
				ops.Get("/cache", cfg.Ops.CacheStats)
			})
		}
	})

	return r
}
