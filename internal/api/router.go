package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pulseboard/internal/api/channels"
	"github.com/good-yellow-bee/pulseboard/internal/api/middleware"
	"github.com/good-yellow-bee/pulseboard/internal/api/notifications"
	"github.com/good-yellow-bee/pulseboard/internal/api/rules"
	"github.com/good-yellow-bee/pulseboard/internal/api/services"
	"github.com/good-yellow-bee/pulseboard/pkg/config"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, &Error{
			Code:    ErrCodeBadRequest,
			Message: "method not allowed",
			Status:  http.StatusMethodNotAllowed,
		})
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))

		r.Route("/rules", func(r chi.Router) {
			ruleHandler := rules.NewHandler(s.storage, s.onRuleChange)

			r.Get("/", ruleHandler.List)
			r.Post("/", ruleHandler.Create)
			r.Get("/presets", ruleHandler.Presets)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ruleHandler.GetByID)
				r.Put("/", ruleHandler.Update)
				r.Delete("/", ruleHandler.Delete)
				r.Post("/enable", ruleHandler.SetEnabled(true))
				r.Post("/disable", ruleHandler.SetEnabled(false))
			})
		})

		r.Route("/channels", func(r chi.Router) {
			channelHandler := channels.NewHandler(s.storage, s.onChanChange)

			r.Get("/", channelHandler.List)
			r.Post("/", channelHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", channelHandler.GetByID)
				r.Put("/", channelHandler.Update)
				r.Delete("/", channelHandler.Delete)
			})
		})

		r.Route("/services", func(r chi.Router) {
			serviceHandler := services.NewHandler(s.storage, s.telemetry)

			r.Get("/", serviceHandler.List)
			r.Post("/", serviceHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", serviceHandler.GetByID)
				r.Put("/", serviceHandler.Update)
				r.Delete("/", serviceHandler.Delete)
				r.Get("/history", serviceHandler.History)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			notificationHandler := notifications.NewHandler(s.storage, s.reads)

			r.Get("/", notificationHandler.List)
			r.Get("/unread", notificationHandler.Unread)
			r.Post("/read-all", notificationHandler.MarkAllRead)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		OK(w, config.GetBuildInfo())
	})

	return r
}
