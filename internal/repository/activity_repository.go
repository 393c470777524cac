package repository

import (
	"context"

	"github.com/straye-as/lead-api/internal/domain"
	"gorm.io/gorm"
)

// ActivityRepository handles database operations for activities.
// Activities are append-only: there is no update or delete.
//
// Index recommendations:
// - CREATE INDEX idx_activities_opportunity_id ON activities(opportunity_id);
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ListActivities returns every activity in insertion (id) order
func (r *ActivityRepository) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := r.db.WithContext(ctx).Order("id ASC").Find(&activities).Error
	return activities, err
}

func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}
