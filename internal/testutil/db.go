// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/straye-as/lead-api/internal/database"
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory sqlite database with the schema applied
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err, "failed to open in-memory database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// FixedTime is the reference instant fixtures are stamped with
var FixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// CreateTestUser inserts a user row and returns it
func CreateTestUser(t *testing.T, db *gorm.DB, id int64, username string, role domain.UserRole) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:        id,
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		Status:    domain.UserStatusActive,
		CreatedAt: FixedTime,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestOpportunity inserts an opportunity row and returns it
func CreateTestOpportunity(t *testing.T, db *gorm.DB, id int64, customer string, assignee int64) *domain.Opportunity {
	t.Helper()
	opp := &domain.Opportunity{
		ID:           id,
		Domain:       "example.com",
		CustomerName: customer,
		Price:        1000,
		DateCreated:  FixedTime,
		LastUpdate:   FixedTime,
		Status:       domain.StatusNew,
		Product:      "SEO",
		Brand:        "Nova",
		Source:       "google",
		AssignedUser: assignee,
	}
	require.NoError(t, db.Create(opp).Error)
	return opp
}

// CreateTestActivity inserts an activity row and returns it
func CreateTestActivity(t *testing.T, db *gorm.DB, id, opportunityID int64, note string) *domain.Activity {
	t.Helper()
	activity := &domain.Activity{
		ID:            id,
		OpportunityID: opportunityID,
		Type:          domain.ActivityTypeNote,
		Note:          note,
		Timestamp:     FixedTime,
	}
	require.NoError(t, db.Create(activity).Error)
	return activity
}
