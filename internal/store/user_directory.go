package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"go.uber.org/zap"
)

// UserPatch carries the user fields an update changes
type UserPatch struct {
	Email        *string
	Phone        *string
	Role         *domain.UserRole
	Status       *domain.UserStatus
	PasswordHash *string
}

// UserDirectory is the in-memory user list, written through to a UserBackend
type UserDirectory struct {
	mu      sync.RWMutex
	users   []domain.User
	lastID  int64
	backend UserBackend
	clock   func() time.Time
	events  *Notifier
	logger  *zap.Logger
}

func NewUserDirectory(backend UserBackend, logger *zap.Logger, opts ...Option) *UserDirectory {
	o := buildOptions(opts)
	return &UserDirectory{
		backend: backend,
		clock:   o.clock,
		events:  o.notifier,
		logger:  logger,
	}
}

// Load replaces the directory with the backend contents, holding the write
// lock across the backend read
func (d *UserDirectory) Load(ctx context.Context) error {
	if d.backend == nil {
		return nil
	}
	d.mu.Lock()
	users, err := d.backend.ListUsers(ctx)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("failed to load users: %w", err)
	}
	d.users = append([]domain.User(nil), users...)
	for _, u := range users {
		if u.ID > d.lastID {
			d.lastID = u.ID
		}
	}
	d.mu.Unlock()
	d.logger.Info("User directory loaded", zap.Int("count", len(users)))
	return nil
}

// List returns all users in insertion order
func (d *UserDirectory) List() []domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.User, len(d.users))
	copy(out, d.users)
	return out
}

// Get returns the user with id
func (d *UserDirectory) Get(id int64) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if pos := d.find(id); pos >= 0 {
		return d.users[pos], nil
	}
	return domain.User{}, &domain.NotFoundError{Resource: "user", ID: id}
}

// FindByUsername matches usernames case-insensitively
func (d *UserDirectory) FindByUsername(username string) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return domain.User{}, false
}

// Add validates and inserts a user with a fresh id
func (d *UserDirectory) Add(ctx context.Context, candidate domain.User) (domain.User, error) {
	candidate.Username = strings.TrimSpace(candidate.Username)
	if candidate.Username == "" {
		return domain.User{}, domain.NewValidationError("username", "is required")
	}
	if !candidate.Role.IsValid() {
		return domain.User{}, domain.NewValidationError("role", "must be admin or sales")
	}
	if candidate.Status == "" {
		candidate.Status = domain.UserStatusActive
	}
	if !candidate.Status.IsValid() {
		return domain.User{}, domain.NewValidationError("status", "must be active or inactive")
	}

	d.mu.Lock()
	for _, u := range d.users {
		if strings.EqualFold(u.Username, candidate.Username) {
			d.mu.Unlock()
			return domain.User{}, domain.NewValidationError("username", "is already taken")
		}
	}

	user := candidate
	user.ID = d.lastID + 1
	user.CreatedAt = d.clock()

	if d.backend != nil {
		if err := d.backend.CreateUser(detach(ctx), &user); err != nil {
			d.mu.Unlock()
			return domain.User{}, fmt.Errorf("failed to create user: %w", err)
		}
	}
	d.lastID = user.ID
	d.users = append(d.users, user)
	d.mu.Unlock()

	d.events.Publish(Event{Kind: EventUserChanged, UserID: user.ID, At: user.CreatedAt})
	return user, nil
}

// Update applies patch to the user with id
func (d *UserDirectory) Update(ctx context.Context, id int64, patch UserPatch) (domain.User, error) {
	d.mu.Lock()
	pos := d.find(id)
	if pos < 0 {
		d.mu.Unlock()
		return domain.User{}, &domain.NotFoundError{Resource: "user", ID: id}
	}

	next := d.users[pos]
	if patch.Email != nil {
		next.Email = *patch.Email
	}
	if patch.Phone != nil {
		next.Phone = *patch.Phone
	}
	if patch.Role != nil {
		if !patch.Role.IsValid() {
			d.mu.Unlock()
			return domain.User{}, domain.NewValidationError("role", "must be admin or sales")
		}
		next.Role = *patch.Role
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			d.mu.Unlock()
			return domain.User{}, domain.NewValidationError("status", "must be active or inactive")
		}
		next.Status = *patch.Status
	}
	if patch.PasswordHash != nil {
		next.PasswordHash = *patch.PasswordHash
	}

	if d.backend != nil {
		if err := d.backend.UpdateUser(detach(ctx), &next); err != nil {
			d.mu.Unlock()
			return domain.User{}, fmt.Errorf("failed to update user %d: %w", id, err)
		}
	}
	d.users[pos] = next
	d.mu.Unlock()

	d.events.Publish(Event{Kind: EventUserChanged, UserID: id, At: d.clock()})
	return next, nil
}

// Remove deletes the user with id
func (d *UserDirectory) Remove(ctx context.Context, id int64) error {
	d.mu.Lock()
	pos := d.find(id)
	if pos < 0 {
		d.mu.Unlock()
		return &domain.NotFoundError{Resource: "user", ID: id}
	}
	if d.backend != nil {
		if err := d.backend.DeleteUser(detach(ctx), id); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("failed to delete user %d: %w", id, err)
		}
	}
	d.users = append(d.users[:pos], d.users[pos+1:]...)
	d.mu.Unlock()

	d.events.Publish(Event{Kind: EventUserChanged, UserID: id, At: d.clock()})
	return nil
}

// find must be called with mu held
func (d *UserDirectory) find(id int64) int {
	for i := range d.users {
		if d.users[i].ID == id {
			return i
		}
	}
	return -1
}
