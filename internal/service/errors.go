package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/domain"
	applog "github.com/straye-as/lead-api/internal/logger"
	"go.uber.org/zap"
)

// Common service errors
var (
	// ErrUnauthorized is returned when the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserContextRequired is returned when no session is attached to the context
	ErrUserContextRequired = fmt.Errorf("%w: user context required", ErrUnauthorized)

	// ErrInvalidCredentials is returned for an unknown username, wrong role or wrong password
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

	// ErrUserInactive is returned when an inactive user tries to log in
	ErrUserInactive = fmt.Errorf("%w: user account is inactive", ErrUnauthorized)
)

func sessionFrom(ctx context.Context) (*auth.Session, error) {
	session, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}
	return session, nil
}

// logDenied records a policy denial as an anomaly and passes err through
func logDenied(logger *zap.Logger, session *auth.Session, err error) error {
	var forbidden *domain.ForbiddenError
	if errors.As(err, &forbidden) {
		applog.WithSession(logger, session.UserID, session.Username, string(session.Role)).Warn("access denied",
			zap.String("operation", forbidden.Operation),
			zap.Int64("opportunity_id", forbidden.OpportunityID),
		)
	}
	return err
}
