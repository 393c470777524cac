package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/config"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/http/handler"
	"github.com/straye-as/lead-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/lead-api/docs" // Import generated swagger docs
)

// HealthCheck probes one dependency for the readiness endpoint
type HealthCheck func(ctx context.Context) error

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth        *handler.AuthHandler
	Opportunity *handler.OpportunityHandler
	Activity    *handler.ActivityHandler
	User        *handler.UserHandler
	Dashboard   *handler.DashboardHandler
	Events      *handler.EventsHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
	checks         map[string]HealthCheck
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
	checks map[string]HealthCheck,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
		checks:         checks,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, middleware.NewOriginPolicy(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger)))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness probe
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness probe over every registered dependency
	r.Get("/health/ready", rt.ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	h := rt.handlers
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", h.Auth.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/logout", h.Auth.Logout)

			r.Get("/events", h.Events.Stream)

			r.Route("/opportunities", func(r chi.Router) {
				r.Get("/", h.Opportunity.List)
				r.Post("/", h.Opportunity.Create)
				r.Get("/{id}", h.Opportunity.Get)
				r.Patch("/{id}", h.Opportunity.Update)
				r.Delete("/{id}", h.Opportunity.Delete)
				r.Put("/{id}/assignee", h.Opportunity.Reassign)
				r.Put("/{id}/status", h.Opportunity.Transition)
				r.Get("/{id}/activities", h.Activity.ListActivities)
				r.Post("/{id}/activities", h.Activity.LogActivity)
			})

			r.Get("/dashboard/me", h.Dashboard.Sales)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/dashboard/admin", h.Dashboard.Admin)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.User.List)
					r.Post("/", h.User.Create)
					r.Patch("/{id}", h.User.Update)
					r.Put("/{id}/status", h.User.SetStatus)
					r.Delete("/{id}", h.User.Delete)
				})
			})
		})
	})

	return r
}

func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(rt.checks))
	for name := range rt.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]interface{}, len(names))
	allHealthy := true
	for _, name := range names {
		if err := rt.checks[name](ctx); err != nil {
			rt.logger.Error("Health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
			continue
		}
		checks[name] = map[string]interface{}{
			"status": "healthy",
		}
	}

	status, label := http.StatusOK, "healthy"
	if !allHealthy {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": label,
		"checks": checks,
	})
}
