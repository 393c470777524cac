package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"go.uber.org/zap"
)

// SessionChecker reports whether a session id has not been revoked
type SessionChecker interface {
	Active(ctx context.Context, sessionID string) (bool, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	tokens   *TokenIssuer
	sessions SessionChecker
	apiKey   string
	logger   *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(tokens *TokenIssuer, sessions SessionChecker, apiKey string, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens:   tokens,
		sessions: sessions,
		apiKey:   apiKey,
		logger:   logger,
	}
}

// Authenticate accepts an x-api-key header or a Bearer session token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			serve(next, w, r, SystemSession())
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Unauthorized: missing or malformed authorization header", http.StatusUnauthorized)
			return
		}

		session, err := m.tokens.Validate(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		if m.sessions != nil {
			active, err := m.sessions.Active(r.Context(), session.SessionID)
			if err != nil {
				m.logger.Error("session lookup failed", zap.String("session_id", session.SessionID), zap.Error(err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !active {
				http.Error(w, "Unauthorized: session has ended", http.StatusUnauthorized)
				return
			}
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int64("user_id", session.UserID),
			zap.String("role", string(session.Role)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		serve(next, w, r, session)
	})
}

// sessionRecorder is implemented by response writers that log the caller
type sessionRecorder interface {
	RecordSession(session *Session)
}

func serve(next http.Handler, w http.ResponseWriter, r *http.Request, session *Session) {
	if rec, ok := w.(sessionRecorder); ok {
		rec.RecordSession(session)
	}
	next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
}

// RequireRole ensures the session has one of roles
func (m *Middleware) RequireRole(roles ...domain.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, "Forbidden: no session", http.StatusForbidden)
				return
			}
			if !session.HasAnyRole(roles...) {
				m.logger.Warn("role check denied",
					zap.Int64("user_id", session.UserID),
					zap.String("role", string(session.Role)),
					zap.String("path", r.URL.Path),
				)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		// browsers cannot set headers on websocket upgrades
		if token := r.URL.Query().Get("access_token"); token != "" && isUpgrade(r) {
			return token, true
		}
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}
