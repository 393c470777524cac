package handler

import (
	"net/http"

	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/service"
	"go.uber.org/zap"
)

// ActivityHandler serves the activity history nested under an opportunity
type ActivityHandler struct {
	opportunityService *service.OpportunityService
	logger             *zap.Logger
}

func NewActivityHandler(opportunityService *service.OpportunityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		opportunityService: opportunityService,
		logger:             logger,
	}
}

// ListActivities godoc
// @Summary List opportunity activities
// @Description Newest first
// @Tags Activities
// @Produce json
// @Param id path int true "Opportunity ID"
// @Success 200 {array} domain.ActivityDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities/{id}/activities [get]
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID")
		return
	}

	activities, err := h.opportunityService.Activities(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, activities)
}

// LogActivity godoc
// @Summary Log an activity
// @Description Records a call, email, note or meeting against the opportunity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param request body domain.CreateActivityRequest true "Activity"
// @Success 201 {object} domain.ActivityDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities/{id}/activities [post]
func (h *ActivityHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID")
		return
	}

	var req domain.CreateActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	activity, err := h.opportunityService.LogActivity(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, activity)
}
