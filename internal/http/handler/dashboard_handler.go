package handler

import (
	"net/http"

	"github.com/straye-as/lead-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// Admin godoc
// @Summary Admin dashboard
// @Description Totals, conversion rate, revenue progress, breakdowns and per-agent summaries over all opportunities
// @Tags Dashboard
// @Produce json
// @Success 200 {object} report.AdminDashboard
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboardService.Admin(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// Sales godoc
// @Summary Sales dashboard
// @Description Summary over the opportunities assigned to the caller
// @Tags Dashboard
// @Produce json
// @Success 200 {object} report.SalesDashboard
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /dashboard/me [get]
func (h *DashboardHandler) Sales(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboardService.Sales(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}
