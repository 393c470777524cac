package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLog(t *testing.T, backend *fakeBackend, clock *fakeClock) (*store.OpportunityStore, *store.ActivityLog) {
	t.Helper()
	var oppBackend store.OpportunityBackend
	var actBackend store.ActivityBackend
	if backend != nil {
		oppBackend = backend
		actBackend = backend
	}
	opps := store.NewOpportunityStore(oppBackend, zap.NewNop(), store.WithClock(clock.Now))
	log := store.NewActivityLog(opps, actBackend, zap.NewNop(), store.WithClock(clock.Now))
	return opps, log
}

func TestActivityLog_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns sequential ids and timestamps", func(t *testing.T) {
		opps, log := newLog(t, nil, newFakeClock())
		opp, err := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)

		first, err := log.Append(ctx, domain.Activity{OpportunityID: opp.ID, Type: domain.ActivityTypeCall, Note: "intro", UserID: 7, Username: "sara"})
		require.NoError(t, err)
		second, err := log.Append(ctx, domain.Activity{OpportunityID: opp.ID, Type: domain.ActivityTypeEmail, Note: "follow up"})
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)
		assert.False(t, first.Timestamp.IsZero())
		assert.Equal(t, "sara", first.Username)
	})

	t.Run("missing opportunity is not found and log unchanged", func(t *testing.T) {
		_, log := newLog(t, nil, newFakeClock())
		_, err := log.Append(ctx, domain.Activity{OpportunityID: 999, Type: domain.ActivityTypeCall, Note: "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 0, log.Len())
	})

	t.Run("unknown type is a validation error", func(t *testing.T) {
		opps, log := newLog(t, nil, newFakeClock())
		opp, _ := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		_, err := log.Append(ctx, domain.Activity{OpportunityID: opp.ID, Type: "fax"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("backend failure leaves log unchanged", func(t *testing.T) {
		backend := &fakeBackend{}
		opps, log := newLog(t, backend, newFakeClock())
		opp, err := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)

		backend.fail = errors.New("down")
		_, err = log.Append(ctx, domain.Activity{OpportunityID: opp.ID, Type: domain.ActivityTypeNote})
		require.Error(t, err)
		assert.Equal(t, 0, log.Len())
	})

	t.Run("entries survive opportunity removal", func(t *testing.T) {
		opps, log := newLog(t, nil, newFakeClock())
		opp, _ := opps.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		_, err := log.Append(ctx, domain.Activity{OpportunityID: opp.ID, Type: domain.ActivityTypeMeeting})
		require.NoError(t, err)

		require.NoError(t, opps.Remove(ctx, opp.ID))
		assert.Len(t, log.ForOpportunity(opp.ID), 1)

		_, err = log.Append(ctx, domain.Activity{OpportunityID: opp.ID, Type: domain.ActivityTypeNote})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestActivityLog_Ordering(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	opps, log := newLog(t, nil, clock)
	a, _ := opps.Add(ctx, domain.Opportunity{CustomerName: "A"})
	b, _ := opps.Add(ctx, domain.Opportunity{CustomerName: "B"})

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock.Set(base, 0)
	tie1, _ := log.Append(ctx, domain.Activity{OpportunityID: a.ID, Type: domain.ActivityTypeCall, Note: "tie 1"})
	tie2, _ := log.Append(ctx, domain.Activity{OpportunityID: a.ID, Type: domain.ActivityTypeCall, Note: "tie 2"})
	_, _ = log.Append(ctx, domain.Activity{OpportunityID: b.ID, Type: domain.ActivityTypeNote, Note: "other"})
	clock.Set(base.Add(time.Minute), 0)
	later, _ := log.Append(ctx, domain.Activity{OpportunityID: a.ID, Type: domain.ActivityTypeEmail, Note: "later"})

	t.Run("insertion order", func(t *testing.T) {
		got := log.ForOpportunity(a.ID)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{tie1.ID, tie2.ID, later.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("newest first with later insertion winning ties", func(t *testing.T) {
		got := log.Newest(a.ID)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{later.ID, tie2.ID, tie1.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("unknown opportunity has no entries", func(t *testing.T) {
		assert.Empty(t, log.ForOpportunity(42))
	})
}

func TestActivityLog_LoadAndEvents(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		opportunities: []domain.Opportunity{{ID: 1, CustomerName: "Acme", Status: domain.StatusNew}},
		activities: []domain.Activity{
			{ID: 3, OpportunityID: 1, Type: domain.ActivityTypeCall},
			{ID: 5, OpportunityID: 1, Type: domain.ActivityTypeNote},
		},
	}
	opps, log := newLog(t, backend, newFakeClock())
	require.NoError(t, opps.Load(ctx))
	require.NoError(t, log.Load(ctx))
	assert.Equal(t, 2, log.Len())

	var events []store.Event
	opps.Notifier().Subscribe(func(e store.Event) { events = append(events, e) })

	activity, err := log.Append(ctx, domain.Activity{OpportunityID: 1, Type: domain.ActivityTypeEmail})
	require.NoError(t, err)
	assert.Equal(t, int64(6), activity.ID)

	require.Len(t, events, 1)
	assert.Equal(t, store.EventActivityAppended, events[0].Kind)
	assert.Equal(t, activity.ID, events[0].ActivityID)
}
