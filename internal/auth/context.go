package auth

import (
	"context"

	"github.com/straye-as/lead-api/internal/domain"
)

// SystemUserID identifies requests authenticated with the admin API key
const SystemUserID int64 = 0

// Session is the identity and role of the caller. It is passed explicitly to
// policy checks and carried through request contexts.
type Session struct {
	UserID    int64
	Username  string
	Role      domain.UserRole
	SessionID string
}

// NewSession builds a session for user
func NewSession(user domain.User, sessionID string) *Session {
	return &Session{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		SessionID: sessionID,
	}
}

// SystemSession is the admin identity used for API key requests
func SystemSession() *Session {
	return &Session{
		UserID:   SystemUserID,
		Username: "system",
		Role:     domain.RoleAdmin,
	}
}

// IsAdmin reports whether the session has the admin role
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == domain.RoleAdmin
}

// IsSales reports whether the session has the sales role
func (s *Session) IsSales() bool {
	return s != nil && s.Role == domain.RoleSales
}

// HasAnyRole checks if the session has any of roles
func (s *Session) HasAnyRole(roles ...domain.UserRole) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Actor returns the attribution recorded on activities
func (s *Session) Actor() domain.Actor {
	return domain.Actor{UserID: s.UserID, Username: s.Username}
}

type contextKey string

const sessionContextKey contextKey = "session"

// WithSession adds session to the context
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// FromContext extracts the session from the context
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	return session, ok && session != nil
}
