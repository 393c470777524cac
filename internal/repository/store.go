// Package repository implements the DataStore on top of gorm.
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store bundles the gorm repositories into a single DataStore
type Store struct {
	*UserRepository
	*OpportunityRepository
	*ActivityRepository
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		UserRepository:        NewUserRepository(db),
		OpportunityRepository: NewOpportunityRepository(db),
		ActivityRepository:    NewActivityRepository(db),
		db:                    db,
	}
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
