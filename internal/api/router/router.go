package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/simao-ai/rural-platform/internal/http/handlers"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Webhook        *handlers.WebhookHandler
	HandoffAdmin   *handlers.HandoffAdminHandler
	AdminToken     string
	MetricsHandler http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Public endpoints (gateway webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Webhook.HealthCheck)
		public.Post("/webhooks/messages", cfg.Webhook.HandleMessage)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Agent-facing queue administration
	if cfg.HandoffAdmin != nil {
		r.Route("/admin/handoffs", func(admin chi.Router) {
			admin.Use(requireAdminToken(cfg.AdminToken))
			admin.Post("/assign", cfg.HandoffAdmin.Assign)
			admin.Get("/pending", cfg.HandoffAdmin.Pending)
			admin.Get("/stats", cfg.HandoffAdmin.Stats)
			admin.Route("/{requestID}", func(req chi.Router) {
				req.Get("/", cfg.HandoffAdmin.Get)
				req.Post("/start", cfg.HandoffAdmin.Start)
				req.Post("/complete", cfg.HandoffAdmin.Complete)
				req.Post("/cancel", cfg.HandoffAdmin.Cancel)
			})
		})
	}

	return r
}
