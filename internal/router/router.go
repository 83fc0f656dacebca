package router

import (
	"net/http"

	"bayt-storefront/internal/handler"
	"bayt-storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler           *handler.Handler
	StorefrontHandler *handler.StorefrontHandler
	AdminHandler      *handler.AdminHandler
	AdminMiddleware   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Session)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", middleware.SessionHeader, middleware.LoginKeyHeader},
		ExposedHeaders:   []string{"X-Request-ID", middleware.SessionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.StorefrontHandler != nil {
			r.Route("/storefront", func(r chi.Router) {
				r.Get("/", cfg.StorefrontHandler.GetState)
				r.Put("/query", cfg.StorefrontHandler.UpdateQuery)
				r.Get("/notifications", cfg.StorefrontHandler.ListNotifications)
				r.Delete("/notifications/{id}", cfg.StorefrontHandler.DismissNotification)
			})
		}

		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				if cfg.AdminMiddleware != nil {
					r.Use(cfg.AdminMiddleware)
				}
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/cache/purge", cfg.AdminHandler.PurgeCache)
			})
		}
	})

	return r
}
