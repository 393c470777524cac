// Package store holds the in-memory authoritative collections of users,
// opportunities and activities, written through to a DataStore.
package store

import (
	"context"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"go.uber.org/zap"
)

// UserBackend persists users
type UserBackend interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// OpportunityBackend persists opportunities
type OpportunityBackend interface {
	ListOpportunities(ctx context.Context) ([]domain.Opportunity, error)
	CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error
	UpdateOpportunity(ctx context.Context, opp *domain.Opportunity) error
	DeleteOpportunity(ctx context.Context, id int64) error
}

// ActivityBackend persists activities. There is no update or delete.
type ActivityBackend interface {
	ListActivities(ctx context.Context) ([]domain.Activity, error)
	CreateActivity(ctx context.Context, activity *domain.Activity) error
}

// DataStore is the remote or database collaborator the stores write through to.
// Implementations: repository.Store (gorm) and datastore.Client (REST).
type DataStore interface {
	UserBackend
	OpportunityBackend
	ActivityBackend
	Ping(ctx context.Context) error
}

// Option configures a store
type Option func(*options)

type options struct {
	clock    func() time.Time
	notifier *Notifier
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithNotifier shares a change notifier between stores
func WithNotifier(n *Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = NewNotifier(zap.NewNop())
	}
	return o
}

// detach keeps remote writes running when the caller goes away so the
// remote copy and the in-memory copy cannot diverge.
func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
