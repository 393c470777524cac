package service

import (
	"context"
	"fmt"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/mapper"
	"github.com/straye-as/lead-api/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles admin user management
type UserService struct {
	users         *store.UserDirectory
	opportunities *store.OpportunityStore
	logger        *zap.Logger
}

func NewUserService(users *store.UserDirectory, opportunities *store.OpportunityStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:         users,
		opportunities: opportunities,
		logger:        logger,
	}
}

func (s *UserService) List(ctx context.Context) ([]domain.UserDTO, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return mapper.ToUserDTOs(s.users.List()), nil
}

// Create adds a user with a unique username and an optional password
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserDTO, error) {
	session, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	candidate := domain.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Status:   domain.UserStatusActive,
	}
	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		candidate.PasswordHash = hash
	}

	user, err := s.users.Add(ctx, candidate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Int64("created_by", session.UserID),
	)
	dto := mapper.ToUserDTO(&user)
	return &dto, nil
}

// Update changes contact details, role or password. A sales user who still
// owns opportunities keeps the sales role until they are reassigned.
func (s *UserService) Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.UserDTO, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Role != nil && *req.Role != domain.RoleSales {
		current, err := s.users.Get(id)
		if err != nil {
			return nil, err
		}
		if current.Role == domain.RoleSales {
			if owned := s.opportunities.AssignedTo(id); len(owned) > 0 {
				return nil, domain.NewValidationError("role", fmt.Sprintf("user %d still owns %d opportunities", id, len(owned)))
			}
		}
	}

	patch := store.UserPatch{
		Email: req.Email,
		Phone: req.Phone,
		Role:  req.Role,
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	user, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToUserDTO(&user)
	return &dto, nil
}

// SetStatus activates or deactivates a user
func (s *UserService) SetStatus(ctx context.Context, id int64, status domain.UserStatus) (*domain.UserDTO, error) {
	session, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if id == session.UserID && status != domain.UserStatusActive {
		return nil, domain.NewValidationError("status", "cannot deactivate the signed-in user")
	}

	user, err := s.users.Update(ctx, id, store.UserPatch{Status: &status})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user status changed", zap.Int64("user_id", id), zap.String("status", string(status)))
	dto := mapper.ToUserDTO(&user)
	return &dto, nil
}

// Delete removes a user and unassigns every opportunity they owned
func (s *UserService) Delete(ctx context.Context, id int64) error {
	session, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if id == session.UserID {
		return domain.NewValidationError("id", "cannot delete the signed-in user")
	}

	if _, err := s.users.Get(id); err != nil {
		return err
	}
	released, err := s.opportunities.ClearAssignee(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to unassign opportunities of user %d: %w", id, err)
	}
	if err := s.users.Remove(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted",
		zap.Int64("user_id", id),
		zap.Int("unassigned_opportunities", len(released)),
	)
	return nil
}

func (s *UserService) requireAdmin(ctx context.Context) (*auth.Session, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(session, auth.OpManageUsers); err != nil {
		return nil, logDenied(s.logger, session, err)
	}
	return session, nil
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
