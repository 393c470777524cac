package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/straye-as/lead-api/internal/config"
	"go.uber.org/zap"
)

// OriginPolicy decides whether a browser origin may call the API or open the event feed
type OriginPolicy func(origin string) bool

func isDevelopment(environment string) bool {
	switch environment {
	case "development", "local", "":
		return true
	}
	return false
}

// NewOriginPolicy builds the origin check from the configured origins.
// "*" admits any origin. With no origins configured, development admits any
// origin and every other environment admits none.
func NewOriginPolicy(cfg *config.CORSConfig, environment string, logger *zap.Logger) OriginPolicy {
	switch {
	case slices.Contains(cfg.AllowedOrigins, "*"):
		if !isDevelopment(environment) {
			logger.Warn("CORS allows any origin outside development",
				zap.String("environment", environment))
		}
		return func(origin string) bool { return origin != "" }

	case len(cfg.AllowedOrigins) > 0:
		allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
		for _, o := range cfg.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		logger.Info("CORS restricted to configured origins",
			zap.Strings("origins", cfg.AllowedOrigins))
		return func(origin string) bool {
			_, ok := allowed[origin]
			return ok
		}

	case isDevelopment(environment):
		logger.Info("CORS allows any origin in development")
		return func(origin string) bool { return origin != "" }

	default:
		logger.Warn("CORS has no allowed origins, cross-origin requests are rejected",
			zap.String("environment", environment))
		return func(string) bool { return false }
	}
}

// CORS returns the cross-origin middleware. The policy is always applied via
// AllowOriginFunc since an empty AllowedOrigins list means "*" to go-chi/cors.
func CORS(cfg *config.CORSConfig, policy OriginPolicy) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return policy(origin)
		},
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
