// Package router wires the HTTP surface of the assistant API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/medassist-ai/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/medassist-ai/internal/http/middleware"
	"github.com/wolfman30/medassist-ai/internal/webchat"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	ChatHandler     *handlers.ChatHandler
	WebChatHandler  *webchat.Handler
	AdminAudit      *handlers.AdminAuditHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.ChatHandler.HealthCheck)

		public.Route("/chat", func(r chi.Router) {
			r.Post("/message", cfg.ChatHandler.Message)
			r.Get("/history", cfg.ChatHandler.History)
			r.Post("/clear", cfg.ChatHandler.Clear)
		})
		public.Get("/appointments", cfg.ChatHandler.Appointments)

		if cfg.WebChatHandler != nil {
			public.Get("/webchat/ws", cfg.WebChatHandler.HandleWebSocket)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin routes (JWT protected)
	if cfg.AdminAudit != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/audit", cfg.AdminAudit.ListEvents)
		})
	}

	return r
}
