package service

import (
	"context"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/report"
	"github.com/straye-as/lead-api/internal/store"
	"go.uber.org/zap"
)

// Targets are the revenue goals dashboards measure progress against
type Targets struct {
	Admin float64
	Sales float64
}

// DashboardService builds role-specific dashboards from the live stores
type DashboardService struct {
	opportunities *store.OpportunityStore
	users         *store.UserDirectory
	targets       Targets
	logger        *zap.Logger
}

func NewDashboardService(opportunities *store.OpportunityStore, users *store.UserDirectory, targets Targets, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		opportunities: opportunities,
		users:         users,
		targets:       targets,
		logger:        logger,
	}
}

// Admin returns the organisation-wide dashboard
func (s *DashboardService) Admin(ctx context.Context) (*report.AdminDashboard, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(session, auth.OpViewDashboard); err != nil {
		return nil, logDenied(s.logger, session, err)
	}
	d := report.BuildAdminDashboard(s.opportunities.List(), s.users.List(), s.targets.Admin)
	return &d, nil
}

// Sales returns the dashboard over the caller's visible opportunities
func (s *DashboardService) Sales(ctx context.Context) (*report.SalesDashboard, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	visible := auth.VisibleTo(session, s.opportunities.List())
	d := report.BuildSalesDashboard(session.UserID, session.Username, visible, s.targets.Sales)
	return &d, nil
}
