// Package session tracks issued login sessions so they can be revoked on logout.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Record is a stored login session
type Record struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	Username  string          `json:"username"`
	Role      domain.UserRole `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Store persists session records until they expire or are deleted
type Store interface {
	Save(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	// Active reports whether id exists and has not expired
	Active(ctx context.Context, id string) (bool, error)
}
