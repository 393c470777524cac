package handler

import (
	"net/http"
	"strings"

	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/filter"
	"github.com/straye-as/lead-api/internal/service"
	"go.uber.org/zap"
)

type OpportunityHandler struct {
	opportunityService *service.OpportunityService
	logger             *zap.Logger
}

func NewOpportunityHandler(opportunityService *service.OpportunityService, logger *zap.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		opportunityService: opportunityService,
		logger:             logger,
	}
}

// List godoc
// @Summary List opportunities
// @Description Lists the opportunities visible to the caller. Admins see all, sales see those assigned to them.
// @Tags Opportunities
// @Produce json
// @Param q query string false "Case-insensitive search over customer name, domain and email"
// @Param status query string false "Status or 'all'"
// @Param product query string false "Product or 'all'"
// @Param brand query string false "Brand or 'all'"
// @Param source query string false "Source or 'all'"
// @Param assignedUser query string false "User id or 'all'"
// @Param dateFrom query string false "Created on or after (YYYY-MM-DD)"
// @Param dateTo query string false "Created on or before (YYYY-MM-DD)"
// @Param sortBy query string false "Sort key" Enums(date_created, last_update, price, clicks, customer_name)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.OpportunityDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities [get]
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	spec, err := filter.ParseSpec(query)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	sortBy, err := filter.ParseSortKey(query.Get("sortBy"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	result, err := h.opportunityService.List(r.Context(), service.ListQuery{
		Filter:   spec,
		SortBy:   sortBy,
		SortDesc: strings.EqualFold(query.Get("sortOrder"), "desc"),
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "pageSize", 20),
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get opportunity
// @Tags Opportunities
// @Produce json
// @Param id path int true "Opportunity ID"
// @Success 200 {object} domain.OpportunityDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities/{id} [get]
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID")
		return
	}

	opp, err := h.opportunityService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, opp)
}

// Create godoc
// @Summary Create opportunity
// @Description Admin only. Status defaults to New.
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param request body domain.CreateOpportunityRequest true "Opportunity data"
// @Success 201 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities [post]
func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOpportunityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opp, err := h.opportunityService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/v1/opportunities/"+formatID(opp.ID))
	respondJSON(w, http.StatusCreated, opp)
}

// Update godoc
// @Summary Update opportunity
// @Description Partial update. Status and owner are changed through their own endpoints.
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param request body domain.UpdateOpportunityRequest true "Fields to change"
// @Success 200 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities/{id} [patch]
func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID")
		return
	}

	var req domain.UpdateOpportunityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opp, err := h.opportunityService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, opp)
}

// Reassign godoc
// @Summary Reassign opportunity
// @Description Admin only. An assignedUser of 0 leaves the opportunity unassigned.
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param request body domain.ReassignOpportunityRequest true "New owner"
// @Success 200 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities/{id}/assignee [put]
func (h *OpportunityHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID")
		return
	}

	var req domain.ReassignOpportunityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opp, err := h.opportunityService.Reassign(r.Context(), id, *req.AssignedUser)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, opp)
}

// Transition godoc
// @Summary Change opportunity status
// @Description Sets the status and records a status-change activity attributed to the caller
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param request body domain.TransitionStatusRequest true "Target status"
// @Success 200 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities/{id}/status [put]
func (h *OpportunityHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID")
		return
	}

	var req domain.TransitionStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opp, err := h.opportunityService.Transition(r.Context(), id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, opp)
}

// Delete godoc
// @Summary Delete opportunity
// @Description Admin only. The opportunity's activities are kept.
// @Tags Opportunities
// @Param id path int true "Opportunity ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /opportunities/{id} [delete]
func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID")
		return
	}

	if err := h.opportunityService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
