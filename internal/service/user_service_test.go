package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/repository"
	"github.com/straye-as/lead-api/internal/service"
	"github.com/straye-as/lead-api/internal/session"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/straye-as/lead-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService(t *testing.T) {
	f := newFixture(t)

	t.Run("sales cannot manage users", func(t *testing.T) {
		_, err := f.userSvc.List(salesCtx(7, "sara"))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("create assigns next id and hides password", func(t *testing.T) {
		got, err := f.userSvc.Create(adminCtx(), &domain.CreateUserRequest{
			Username: "kari",
			Role:     domain.RoleSales,
			Password: "correct horse",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.ID)
		assert.Equal(t, domain.UserStatusActive, got.Status)

		user, err := f.users.Get(9)
		require.NoError(t, err)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "correct horse", user.PasswordHash)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := f.userSvc.Create(adminCtx(), &domain.CreateUserRequest{Username: "SARA", Role: domain.RoleSales})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("status toggle", func(t *testing.T) {
		got, err := f.userSvc.SetStatus(adminCtx(), 8, domain.UserStatusInactive)
		require.NoError(t, err)
		assert.Equal(t, domain.UserStatusInactive, got.Status)

		_, err = f.userSvc.SetStatus(adminCtx(), 1, domain.UserStatusInactive)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("sales owner keeps role while assigned", func(t *testing.T) {
		admin := domain.RoleAdmin
		_, err := f.userSvc.Update(adminCtx(), 7, &domain.UpdateUserRequest{Role: &admin})
		assert.ErrorIs(t, err, domain.ErrValidation)
		user, _ := f.users.Get(7)
		assert.Equal(t, domain.RoleSales, user.Role)

		got, err := f.userSvc.Update(adminCtx(), 9, &domain.UpdateUserRequest{Role: &admin})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, got.Role)
	})

	t.Run("delete unassigns owned opportunities", func(t *testing.T) {
		require.NoError(t, f.userSvc.Delete(adminCtx(), 7))
		opp, err := f.opportunities.Get(1)
		require.NoError(t, err)
		assert.False(t, opp.IsAssigned())

		assert.ErrorIs(t, f.userSvc.Delete(adminCtx(), 7), domain.ErrNotFound)
		assert.ErrorIs(t, f.userSvc.Delete(adminCtx(), 1), domain.ErrValidation)
	})
}

func TestUserService_DeleteKeepsUserWhenUnassignFails(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	testutil.CreateTestUser(t, db, 1, "admin", domain.RoleAdmin)
	testutil.CreateTestUser(t, db, 7, "sara", domain.RoleSales)
	testutil.CreateTestOpportunity(t, db, 1, "Alpha AS", 7)

	backend := repository.NewStore(db)
	opps := store.NewOpportunityStore(backend, zap.NewNop())
	require.NoError(t, opps.Load(ctx))
	users := store.NewUserDirectory(backend, zap.NewNop())
	require.NoError(t, users.Load(ctx))
	svc := service.NewUserService(users, opps, zap.NewNop())

	require.NoError(t, db.Migrator().DropTable(&domain.Opportunity{}))

	err := svc.Delete(adminCtx(), 7)
	require.Error(t, err)

	_, err = users.Get(7)
	assert.NoError(t, err)
	opp, err := opps.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), opp.AssignedUser)
}

func TestDashboardService(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transition(adminCtx(), 1, "Registered")
	require.NoError(t, err)

	admin, err := f.dashboards.Admin(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, 3, admin.TotalOpportunities)
	assert.Equal(t, 1, admin.Unassigned)
	assert.Equal(t, 1000.0, admin.Revenue.Generated)
	assert.InDelta(t, 0.25, admin.Revenue.Progress, 1e-9)

	_, err = f.dashboards.Admin(salesCtx(7, "sara"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	sales, err := f.dashboards.Sales(salesCtx(7, "sara"))
	require.NoError(t, err)
	assert.Equal(t, 1, sales.TotalOpportunities)
	assert.Equal(t, 100.0, sales.ConversionRate)
	assert.InDelta(t, 0.5, sales.Revenue.Progress, 1e-9)
}

func TestAuthService(t *testing.T) {
	f := newFixture(t)
	tokens := auth.NewTokenIssuer("test-secret", "lead-api-test", time.Hour)
	sessions := session.NewMemoryStore()
	svc := service.NewAuthService(f.users, tokens, sessions, false, zap.NewNop())
	ctx := context.Background()

	t.Run("login by username and role", func(t *testing.T) {
		resp, err := svc.Login(ctx, &domain.LoginRequest{Username: "Sara", Role: domain.RoleSales})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, int64(7), resp.User.ID)

		current, err := tokens.Validate(resp.Token)
		require.NoError(t, err)
		active, err := sessions.Active(ctx, current.SessionID)
		require.NoError(t, err)
		assert.True(t, active)

		reqCtx := auth.WithSession(ctx, current)
		me, err := svc.CurrentUser(reqCtx)
		require.NoError(t, err)
		assert.Equal(t, "sara", me.Username)

		require.NoError(t, svc.Logout(reqCtx))
		active, err = sessions.Active(ctx, current.SessionID)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("wrong role", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{Username: "sara", Role: domain.RoleAdmin})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{Username: "nobody", Role: domain.RoleSales})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := f.userSvc.SetStatus(adminCtx(), 8, domain.UserStatusInactive)
		require.NoError(t, err)
		_, err = svc.Login(ctx, &domain.LoginRequest{Username: "ola", Role: domain.RoleSales})
		assert.ErrorIs(t, err, service.ErrUserInactive)
	})

	t.Run("password checked when set", func(t *testing.T) {
		_, err := f.userSvc.Update(adminCtx(), 7, &domain.UpdateUserRequest{Password: ptr("s3cret-pass")})
		require.NoError(t, err)

		_, err = svc.Login(ctx, &domain.LoginRequest{Username: "sara", Role: domain.RoleSales, Password: "wrong"})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)

		_, err = svc.Login(ctx, &domain.LoginRequest{Username: "sara", Role: domain.RoleSales, Password: "s3cret-pass"})
		assert.NoError(t, err)
	})

	t.Run("password required", func(t *testing.T) {
		strict := service.NewAuthService(f.users, tokens, sessions, true, zap.NewNop())
		_, err := strict.Login(ctx, &domain.LoginRequest{Username: "admin", Role: domain.RoleAdmin})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("system session", func(t *testing.T) {
		sysCtx := auth.WithSession(ctx, auth.SystemSession())
		me, err := svc.CurrentUser(sysCtx)
		require.NoError(t, err)
		assert.Equal(t, "system", me.Username)
		assert.NoError(t, svc.Logout(sysCtx))
	})
}
