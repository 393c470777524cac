package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/filter"
	"github.com/straye-as/lead-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpportunityService_List(t *testing.T) {
	f := newFixture(t)

	t.Run("admin sees everything", func(t *testing.T) {
		page, err := f.svc.List(adminCtx(), service.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("sales sees only own", func(t *testing.T) {
		page, err := f.svc.List(salesCtx(7, "sara"), service.ListQuery{})
		require.NoError(t, err)
		items := page.Data.([]domain.OpportunityDTO)
		require.Len(t, items, 1)
		assert.Equal(t, int64(1), items[0].ID)
		assert.Equal(t, "sara", items[0].AssignedUserName)
	})

	t.Run("filter and sort", func(t *testing.T) {
		page, err := f.svc.List(adminCtx(), service.ListQuery{
			Filter: filter.Spec{Query: "a as"},
			SortBy: filter.SortCustomerName,
		})
		require.NoError(t, err)
		items := page.Data.([]domain.OpportunityDTO)
		require.Len(t, items, 3)
		assert.Equal(t, "Gamma AS", items[2].CustomerName)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := f.svc.List(adminCtx(), service.ListQuery{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Data.([]domain.OpportunityDTO), 1)
	})

	t.Run("no session", func(t *testing.T) {
		_, err := f.svc.List(context.Background(), service.ListQuery{})
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestOpportunityService_Get(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Get(salesCtx(7, "sara"), 1)
	require.NoError(t, err)
	assert.Equal(t, "Alpha AS", got.CustomerName)

	_, err = f.svc.Get(salesCtx(7, "sara"), 2)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(salesCtx(7, "sara"), 3)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(adminCtx(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpportunityService_Create(t *testing.T) {
	f := newFixture(t)

	t.Run("admin creates with next id", func(t *testing.T) {
		got, err := f.svc.Create(adminCtx(), &domain.CreateOpportunityRequest{
			CustomerName: "Delta AS",
			Price:        2500,
			AssignedUser: 7,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.ID)
		assert.Equal(t, domain.StatusNew, got.Status)
		assert.Equal(t, int64(0), got.Clicks)
	})

	t.Run("sales cannot create", func(t *testing.T) {
		_, err := f.svc.Create(salesCtx(7, "sara"), &domain.CreateOpportunityRequest{CustomerName: "Nope"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("assignee must be a sales user", func(t *testing.T) {
		_, err := f.svc.Create(adminCtx(), &domain.CreateOpportunityRequest{CustomerName: "X", AssignedUser: 1})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.svc.Create(adminCtx(), &domain.CreateOpportunityRequest{CustomerName: "X", AssignedUser: 42})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("empty customer name", func(t *testing.T) {
		_, err := f.svc.Create(adminCtx(), &domain.CreateOpportunityRequest{CustomerName: "  "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.svc.Create(adminCtx(), &domain.CreateOpportunityRequest{CustomerName: "X", Status: "Won"})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})
}

func TestOpportunityService_Mutations(t *testing.T) {
	f := newFixture(t)

	t.Run("sales updates own", func(t *testing.T) {
		got, err := f.svc.Update(salesCtx(7, "sara"), 1, &domain.UpdateOpportunityRequest{Notes: ptr("called twice")})
		require.NoError(t, err)
		assert.Equal(t, "called twice", got.Notes)
	})

	t.Run("sales cannot update others", func(t *testing.T) {
		_, err := f.svc.Update(salesCtx(7, "sara"), 2, &domain.UpdateOpportunityRequest{Notes: ptr("x")})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("sales cannot reassign or delete", func(t *testing.T) {
		_, err := f.svc.Reassign(salesCtx(7, "sara"), 1, 8)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.ErrorIs(t, f.svc.Delete(salesCtx(7, "sara"), 1), domain.ErrForbidden)
	})

	t.Run("admin reassigns", func(t *testing.T) {
		got, err := f.svc.Reassign(adminCtx(), 3, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.AssignedUser)

		page, err := f.svc.List(salesCtx(7, "sara"), service.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("admin deletes", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(adminCtx(), 2))
		assert.ErrorIs(t, f.svc.Delete(adminCtx(), 2), domain.ErrNotFound)
	})
}

func TestOpportunityService_Transition(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Transition(salesCtx(7, "sara"), 1, "Expired")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	history, err := f.svc.Activities(salesCtx(7, "sara"), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Status changed to Expired", history[0].Note)
	assert.Equal(t, domain.ActivityTypeNote, history[0].Type)
	assert.Equal(t, "sara", history[0].Username)

	t.Run("invalid status leaves state unchanged", func(t *testing.T) {
		_, err := f.svc.Transition(salesCtx(7, "sara"), 1, "Won")
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
		opp, err := f.opportunities.Get(1)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, opp.Status)
		assert.Equal(t, 1, f.activities.Len())
	})

	t.Run("forbidden on others", func(t *testing.T) {
		_, err := f.svc.Transition(salesCtx(7, "sara"), 2, "Registered")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, 1, f.activities.Len())
	})
}

func TestOpportunityService_Activities(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.LogActivity(salesCtx(7, "sara"), 1, &domain.CreateActivityRequest{Type: domain.ActivityTypeCall, Note: "first"})
	require.NoError(t, err)
	second, err := f.svc.LogActivity(salesCtx(7, "sara"), 1, &domain.CreateActivityRequest{Type: domain.ActivityTypeEmail, Note: "second"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), second.UserID)

	history, err := f.svc.Activities(salesCtx(7, "sara"), 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Note)

	_, err = f.svc.LogActivity(salesCtx(7, "sara"), 2, &domain.CreateActivityRequest{Type: domain.ActivityTypeCall})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.LogActivity(adminCtx(), 99, &domain.CreateActivityRequest{Type: domain.ActivityTypeCall})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Activities(salesCtx(8, "ola"), 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
