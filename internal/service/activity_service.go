package service

import (
	"context"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/mapper"
	"go.uber.org/zap"
)

// LogActivity appends an activity to an opportunity the caller may mutate
func (s *OpportunityService) LogActivity(ctx context.Context, id int64, req *domain.CreateActivityRequest) (*domain.ActivityDTO, error) {
	session, opp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(session, &opp, auth.OpLogActivity); err != nil {
		return nil, logDenied(s.logger, session, err)
	}

	actor := session.Actor()
	activity, err := s.activities.Append(ctx, domain.Activity{
		OpportunityID: id,
		Type:          req.Type,
		Note:          req.Note,
		UserID:        actor.UserID,
		Username:      actor.Username,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("activity logged",
		zap.Int64("activity_id", activity.ID),
		zap.Int64("opportunity_id", id),
		zap.String("type", string(activity.Type)),
	)

	dto := mapper.ToActivityDTO(&activity)
	return &dto, nil
}

// Activities returns the history of a visible opportunity, newest first
func (s *OpportunityService) Activities(ctx context.Context, id int64) ([]domain.ActivityDTO, error) {
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
	return mapper.ToActivityDTOs(s.activities.Newest(id)), nil
}
