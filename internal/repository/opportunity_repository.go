package repository

import (
	"context"

	"github.com/straye-as/lead-api/internal/domain"
	"gorm.io/gorm"
)

// OpportunityRepository handles database operations for opportunities.
//
// Index recommendations for optimal query performance:
// - CREATE INDEX idx_opportunities_assigned_user ON opportunities(assigned_user);
// - CREATE INDEX idx_opportunities_status ON opportunities(status);
// - CREATE INDEX idx_opportunities_date_created ON opportunities(date_created);
type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// ListOpportunities returns every opportunity in insertion (id) order
func (r *OpportunityRepository) ListOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	err := r.db.WithContext(ctx).Order("id ASC").Find(&opps).Error
	return opps, err
}

func (r *OpportunityRepository) CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	return r.db.WithContext(ctx).Create(opp).Error
}

// UpdateOpportunity overwrites every column, including zero values such as
// an unassigned owner
func (r *OpportunityRepository) UpdateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Opportunity{}).
		Where("id = ?", opp.ID).
		Select("*").
		Updates(opp)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &domain.NotFoundError{Resource: "opportunity", ID: opp.ID}
	}
	return nil
}

// DeleteOpportunity removes the opportunity row. Its activities are kept.
func (r *OpportunityRepository) DeleteOpportunity(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&domain.Opportunity{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &domain.NotFoundError{Resource: "opportunity", ID: id}
	}
	return nil
}
