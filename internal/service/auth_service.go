package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/mapper"
	"github.com/straye-as/lead-api/internal/session"
	"github.com/straye-as/lead-api/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues and revokes login sessions
type AuthService struct {
	users           *store.UserDirectory
	tokens          *auth.TokenIssuer
	sessions        session.Store
	requirePassword bool
	logger          *zap.Logger
}

func NewAuthService(users *store.UserDirectory, tokens *auth.TokenIssuer, sessions session.Store, requirePassword bool, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:           users,
		tokens:          tokens,
		sessions:        sessions,
		requirePassword: requirePassword,
		logger:          logger,
	}
}

// Login authenticates by username and role, plus password when one is set or required
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, ok := s.users.FindByUsername(strings.TrimSpace(req.Username))
	if !ok || user.Role != req.Role {
		s.logger.Warn("login rejected", zap.String("username", req.Username), zap.String("role", string(req.Role)))
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		s.logger.Warn("login by inactive user", zap.Int64("user_id", user.ID))
		return nil, ErrUserInactive
	}
	if err := s.checkPassword(user, req.Password); err != nil {
		s.logger.Warn("login rejected", zap.Int64("user_id", user.ID), zap.String("reason", "password"))
		return nil, err
	}

	issued, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	err = s.sessions.Save(ctx, session.Record{
		ID:        issued.SessionID,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: issued.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))

	return &domain.LoginResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
		User:      mapper.ToUserDTO(&user),
	}, nil
}

// Logout revokes the caller's session. API key callers have nothing to revoke.
func (s *AuthService) Logout(ctx context.Context) error {
	current, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	if current.SessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, current.SessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.logger.Info("user logged out", zap.Int64("user_id", current.UserID))
	return nil
}

// CurrentUser returns the user behind the caller's session
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.UserDTO, error) {
	current, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if current.UserID == auth.SystemUserID {
		return &domain.UserDTO{
			ID:       auth.SystemUserID,
			Username: current.Username,
			Role:     current.Role,
			Status:   domain.UserStatusActive,
		}, nil
	}
	user, err := s.users.Get(current.UserID)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToUserDTO(&user)
	return &dto, nil
}

func (s *AuthService) checkPassword(user domain.User, password string) error {
	if user.PasswordHash == "" {
		if s.requirePassword {
			return ErrInvalidCredentials
		}
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
