package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/repository"
	"github.com/straye-as/lead-api/internal/service"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/straye-as/lead-api/internal/testutil"
	"github.com/straye-as/lead-api/internal/workflow"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	opportunities *store.OpportunityStore
	activities    *store.ActivityLog
	users         *store.UserDirectory
	svc           *service.OpportunityService
	userSvc       *service.UserService
	dashboards    *service.DashboardService
}

// newFixture seeds admin 1, sales 7 (sara) and 8 (ola), and opportunities
// 1 (owned by 7), 2 (owned by 8) and 3 (unassigned)
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	testutil.CreateTestUser(t, db, 1, "admin", domain.RoleAdmin)
	testutil.CreateTestUser(t, db, 7, "sara", domain.RoleSales)
	testutil.CreateTestUser(t, db, 8, "ola", domain.RoleSales)
	testutil.CreateTestOpportunity(t, db, 1, "Alpha AS", 7)
	testutil.CreateTestOpportunity(t, db, 2, "Beta AS", 8)
	testutil.CreateTestOpportunity(t, db, 3, "Gamma AS", 0)

	backend := repository.NewStore(db)
	logger := zap.NewNop()

	opps := store.NewOpportunityStore(backend, logger)
	require.NoError(t, opps.Load(ctx))
	users := store.NewUserDirectory(backend, logger, store.WithNotifier(opps.Notifier()))
	require.NoError(t, users.Load(ctx))
	log := store.NewActivityLog(opps, backend, logger)
	require.NoError(t, log.Load(ctx))

	wf := workflow.New(opps, log, logger)
	return &fixture{
		opportunities: opps,
		activities:    log,
		users:         users,
		svc:           service.NewOpportunityService(opps, log, users, wf, logger),
		userSvc:       service.NewUserService(users, opps, logger),
		dashboards:    service.NewDashboardService(opps, users, service.Targets{Admin: 4000, Sales: 2000}, logger),
	}
}

func adminCtx() context.Context {
	return auth.WithSession(context.Background(), &auth.Session{UserID: 1, Username: "admin", Role: domain.RoleAdmin})
}

func salesCtx(id int64, username string) context.Context {
	return auth.WithSession(context.Background(), &auth.Session{UserID: id, Username: username, Role: domain.RoleSales})
}

func ptr[T any](v T) *T {
	return &v
}
