package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/straye-as/lead-api/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*store.OpportunityStore, *store.ActivityLog, *workflow.Workflow) {
	t.Helper()
	opps := store.NewOpportunityStore(nil, zap.NewNop())
	log := store.NewActivityLog(opps, nil, zap.NewNop())
	return opps, log, workflow.New(opps, log, zap.NewNop())
}

var actor = domain.Actor{UserID: 1, Username: "admin"}

func TestParseStatus(t *testing.T) {
	for _, s := range domain.OpportunityStatuses {
		got, err := workflow.ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, bad := range []string{"Closed", "new", "", "REGISTERED"} {
		_, err := workflow.ParseStatus(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidStatus, bad)
	}
}

func TestTransition_ToExpiredFromAnyStatus(t *testing.T) {
	ctx := context.Background()

	for _, from := range domain.OpportunityStatuses {
		t.Run(string(from), func(t *testing.T) {
			opps, log, wf := setup(t)
			opp, err := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme", Status: from})
			require.NoError(t, err)

			result, err := wf.Transition(ctx, opp.ID, "Expired", actor)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusExpired, result.Opportunity.Status)
			assert.Equal(t, from, result.Previous)
			assert.False(t, result.Opportunity.LastUpdate.Before(opp.LastUpdate))

			entries := log.ForOpportunity(opp.ID)
			require.Len(t, entries, 1)
			assert.Equal(t, domain.ActivityTypeNote, entries[0].Type)
			assert.Equal(t, "Status changed to Expired", entries[0].Note)
			assert.Equal(t, "admin", entries[0].Username)

			stored, _ := opps.Get(opp.ID)
			assert.Equal(t, domain.StatusExpired, stored.Status)
		})
	}
}

func TestTransition_BackwardIsPermitted(t *testing.T) {
	ctx := context.Background()
	opps, log, wf := setup(t)
	opp, _ := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme", Status: domain.StatusRegistered})

	result, err := wf.Transition(ctx, opp.ID, "New", actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, result.Opportunity.Status)

	result, err = wf.Transition(ctx, opp.ID, "New", actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, result.Opportunity.Status)
	assert.Len(t, log.ForOpportunity(opp.ID), 2)
}

func TestTransition_InvalidStatusLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	opps, log, wf := setup(t)
	opp, _ := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme"})

	_, err := wf.Transition(ctx, opp.ID, "Closed", actor)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	stored, _ := opps.Get(opp.ID)
	assert.Equal(t, opp, stored)
	assert.Equal(t, 0, log.Len())
}

func TestTransition_MissingOpportunity(t *testing.T) {
	_, log, wf := setup(t)
	_, err := wf.Transition(context.Background(), 404, "New", actor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, log.Len())
}

// brokenActivities accepts reads but rejects every write
type brokenActivities struct{}

func (brokenActivities) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	return nil, nil
}

func (brokenActivities) CreateActivity(ctx context.Context, a *domain.Activity) error {
	return errors.New("activity table unavailable")
}

func TestTransition_NoteFailureRestoresStatus(t *testing.T) {
	ctx := context.Background()
	opps := store.NewOpportunityStore(nil, zap.NewNop())
	log := store.NewActivityLog(opps, brokenActivities{}, zap.NewNop())
	wf := workflow.New(opps, log, zap.NewNop())

	opp, err := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme", Status: domain.StatusRegistered})
	require.NoError(t, err)

	result, err := wf.Transition(ctx, opp.ID, "Accepted", actor)
	require.Error(t, err)
	assert.Nil(t, result)

	stored, err := opps.Get(opp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRegistered, stored.Status)
	assert.Empty(t, log.ForOpportunity(opp.ID))
}
