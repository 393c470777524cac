package service

import (
	"context"
	"fmt"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/filter"
	"github.com/straye-as/lead-api/internal/mapper"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/straye-as/lead-api/internal/workflow"
	"go.uber.org/zap"
)

// ListQuery selects, orders and pages opportunities for a list request
type ListQuery struct {
	Filter   filter.Spec
	SortBy   filter.SortKey
	SortDesc bool
	Page     int
	PageSize int
}

// OpportunityService applies the access policy around the opportunity store
type OpportunityService struct {
	opportunities *store.OpportunityStore
	activities    *store.ActivityLog
	users         *store.UserDirectory
	workflow      *workflow.Workflow
	logger        *zap.Logger
}

func NewOpportunityService(
	opportunities *store.OpportunityStore,
	activities *store.ActivityLog,
	users *store.UserDirectory,
	wf *workflow.Workflow,
	logger *zap.Logger,
) *OpportunityService {
	return &OpportunityService{
		opportunities: opportunities,
		activities:    activities,
		users:         users,
		workflow:      wf,
		logger:        logger,
	}
}

// List returns the page of visible opportunities matching q
func (s *OpportunityService) List(ctx context.Context, q ListQuery) (*domain.PaginatedResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	visible := auth.VisibleTo(session, s.opportunities.List())
	matched := filter.Apply(visible, q.Filter)
	sorted := filter.Sort(matched, q.SortBy, q.SortDesc)
	page := filter.Paginate(sorted, q.Page, q.PageSize)

	return &domain.PaginatedResponse{
		Data:       mapper.ToOpportunityDTOs(page.Items, s.usernames()),
		Total:      int64(page.Total),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// Get returns one opportunity if the caller may see it
func (s *OpportunityService) Get(ctx context.Context, id int64) (*domain.OpportunityDTO, error) {
	session, opp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanView(session, opp) {
		return nil, logDenied(s.logger, session, &domain.ForbiddenError{
			UserID:        session.UserID,
			Operation:     "view",
			OpportunityID: id,
		})
	}
	dto := mapper.ToOpportunityDTO(&opp, s.usernames())
	return &dto, nil
}

// Create adds an opportunity. Only admins may create.
func (s *OpportunityService) Create(ctx context.Context, req *domain.CreateOpportunityRequest) (*domain.OpportunityDTO, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(session, nil, auth.OpCreate); err != nil {
		return nil, logDenied(s.logger, session, err)
	}

	status := domain.StatusNew
	if req.Status != "" {
		parsed, err := workflow.ParseStatus(string(req.Status))
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	if err := s.validateAssignee(req.AssignedUser); err != nil {
		return nil, err
	}

	opp, err := s.opportunities.Add(ctx, domain.Opportunity{
		Domain:        req.Domain,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Price:         req.Price,
		Status:        status,
		Product:       req.Product,
		Brand:         req.Brand,
		Source:        req.Source,
		AssignedUser:  req.AssignedUser,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("opportunity created",
		zap.Int64("opportunity_id", opp.ID),
		zap.Int64("assigned_user", opp.AssignedUser),
		zap.Int64("created_by", session.UserID),
	)

	dto := mapper.ToOpportunityDTO(&opp, s.usernames())
	return &dto, nil
}

// Update changes opportunity fields other than status and owner
func (s *OpportunityService) Update(ctx context.Context, id int64, req *domain.UpdateOpportunityRequest) (*domain.OpportunityDTO, error) {
	session, opp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(session, &opp, auth.OpUpdate); err != nil {
		return nil, logDenied(s.logger, session, err)
	}

	updated, err := s.opportunities.Update(ctx, id, req.ToPatch())
	if err != nil {
		return nil, err
	}
	dto := mapper.ToOpportunityDTO(&updated, s.usernames())
	return &dto, nil
}

// Reassign changes the owner. userID 0 unassigns.
func (s *OpportunityService) Reassign(ctx context.Context, id, userID int64) (*domain.OpportunityDTO, error) {
	session, opp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(session, &opp, auth.OpReassign); err != nil {
		return nil, logDenied(s.logger, session, err)
	}
	if err := s.validateAssignee(userID); err != nil {
		return nil, err
	}

	updated, err := s.opportunities.Reassign(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("opportunity reassigned",
		zap.Int64("opportunity_id", id),
		zap.Int64("from", opp.AssignedUser),
		zap.Int64("to", userID),
	)

	dto := mapper.ToOpportunityDTO(&updated, s.usernames())
	return &dto, nil
}

// Delete removes an opportunity. Its activities are retained.
func (s *OpportunityService) Delete(ctx context.Context, id int64) error {
	session, opp, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(session, &opp, auth.OpDelete); err != nil {
		return logDenied(s.logger, session, err)
	}
	if err := s.opportunities.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("opportunity deleted", zap.Int64("opportunity_id", id), zap.Int64("deleted_by", session.UserID))
	return nil
}

// Transition moves an opportunity to target and records the status note
func (s *OpportunityService) Transition(ctx context.Context, id int64, target string) (*domain.OpportunityDTO, error) {
	session, opp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(session, &opp, auth.OpTransition); err != nil {
		return nil, logDenied(s.logger, session, err)
	}

	result, err := s.workflow.Transition(ctx, id, target, session.Actor())
	if err != nil {
		return nil, err
	}
	dto := mapper.ToOpportunityDTO(&result.Opportunity, s.usernames())
	return &dto, nil
}

// load resolves the caller session and the referenced opportunity
func (s *OpportunityService) load(ctx context.Context, id int64) (*auth.Session, domain.Opportunity, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, domain.Opportunity{}, err
	}
	opp, err := s.opportunities.Get(id)
	if err != nil {
		return nil, domain.Opportunity{}, err
	}
	return session, opp, nil
}

// validateAssignee accepts 0 or the id of an existing sales user
func (s *OpportunityService) validateAssignee(userID int64) error {
	if userID == domain.Unassigned {
		return nil
	}
	user, err := s.users.Get(userID)
	if err != nil {
		return domain.NewValidationError("assignedUser", fmt.Sprintf("user %d does not exist", userID))
	}
	if user.Role != domain.RoleSales {
		return domain.NewValidationError("assignedUser", fmt.Sprintf("user %d is not a sales agent", userID))
	}
	return nil
}

func (s *OpportunityService) usernames() map[int64]string {
	return mapper.UsernameIndex(s.users.List())
}
