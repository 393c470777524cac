package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock advances by step on every call
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Set(t time.Time, step time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
	c.step = step
}

// fakeBackend records writes and can be told to fail
type fakeBackend struct {
	mu            sync.Mutex
	opportunities []domain.Opportunity
	activities    []domain.Activity
	users         []domain.User
	fail          error
	creates       int
	updates       int
	deletes       int
}

func (b *fakeBackend) ListUsers(ctx context.Context) ([]domain.User, error) {
	return append([]domain.User(nil), b.users...), b.fail
}
func (b *fakeBackend) CreateUser(ctx context.Context, u *domain.User) error {
	if b.fail != nil {
		return b.fail
	}
	b.users = append(b.users, *u)
	return nil
}
func (b *fakeBackend) UpdateUser(ctx context.Context, u *domain.User) error { return b.fail }
func (b *fakeBackend) DeleteUser(ctx context.Context, id int64) error      { return b.fail }

func (b *fakeBackend) ListOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	return append([]domain.Opportunity(nil), b.opportunities...), nil
}
func (b *fakeBackend) CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.creates++
	b.opportunities = append(b.opportunities, *opp)
	return nil
}
func (b *fakeBackend) UpdateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.updates++
	return nil
}
func (b *fakeBackend) DeleteOpportunity(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.deletes++
	return nil
}
func (b *fakeBackend) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	return append([]domain.Activity(nil), b.activities...), b.fail
}
func (b *fakeBackend) CreateActivity(ctx context.Context, a *domain.Activity) error {
	if b.fail != nil {
		return b.fail
	}
	b.activities = append(b.activities, *a)
	return nil
}

func newStore(t *testing.T, backend store.OpportunityBackend, clock *fakeClock) *store.OpportunityStore {
	t.Helper()
	return store.NewOpportunityStore(backend, zap.NewNop(), store.WithClock(clock.Now))
}

func TestOpportunityStore_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("first id is 1 and defaults are applied", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, nil, clock)

		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "John Doe", Clicks: 42, ID: 99})
		require.NoError(t, err)
		assert.Equal(t, int64(1), opp.ID)
		assert.Equal(t, domain.StatusNew, opp.Status)
		assert.Equal(t, int64(0), opp.Clicks)
		assert.Equal(t, opp.DateCreated, opp.LastUpdate)
	})

	t.Run("caller supplied status is kept", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme", Status: domain.StatusFlagged})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFlagged, opp.Status)
	})

	t.Run("empty customer name is a validation error", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		_, err := s.Add(ctx, domain.Opportunity{CustomerName: "   "})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		_, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme", Status: "Closed"})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("negative price is rejected", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		_, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme", Price: -1})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("round trip keeps other ids stable", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		a, err := s.Add(ctx, domain.Opportunity{CustomerName: "A"})
		require.NoError(t, err)
		b, err := s.Add(ctx, domain.Opportunity{CustomerName: "B"})
		require.NoError(t, err)

		c, err := s.Add(ctx, domain.Opportunity{CustomerName: "C"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), c.ID)

		list := s.List()
		require.Len(t, list, 3)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, b.ID, list[1].ID)
		assert.Equal(t, c, list[2])
	})

	t.Run("backend failure leaves store unchanged", func(t *testing.T) {
		backend := &fakeBackend{fail: errors.New("connection refused")}
		s := newStore(t, backend, newFakeClock())
		_, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.Error(t, err)
		assert.Equal(t, 0, s.Len())

		backend.fail = nil
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), opp.ID)
		assert.Equal(t, 1, backend.creates)
	})

	t.Run("cancelled context still writes through", func(t *testing.T) {
		backend := &fakeBackend{}
		s := newStore(t, backend, newFakeClock())
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Add(cctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)
		assert.Equal(t, 1, backend.creates)
	})
}

func TestOpportunityStore_IDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil, newFakeClock())

	_, err := s.Add(ctx, domain.Opportunity{CustomerName: "A"})
	require.NoError(t, err)
	b, err := s.Add(ctx, domain.Opportunity{CustomerName: "B"})
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, b.ID))

	c, err := s.Add(ctx, domain.Opportunity{CustomerName: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)
}

func TestOpportunityStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes last update even without changes", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, nil, clock)
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)

		updated, err := s.Update(ctx, opp.ID, domain.OpportunityPatch{})
		require.NoError(t, err)
		assert.True(t, updated.LastUpdate.After(opp.LastUpdate))
		assert.Equal(t, opp.DateCreated, updated.DateCreated)
	})

	t.Run("last update never moves backwards", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, nil, clock)
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)

		clock.Set(opp.LastUpdate.Add(-time.Hour), time.Second)
		updated, err := s.Update(ctx, opp.ID, domain.OpportunityPatch{})
		require.NoError(t, err)
		assert.False(t, updated.LastUpdate.Before(opp.LastUpdate))
		assert.False(t, updated.LastUpdate.Before(updated.DateCreated))
	})

	t.Run("applies only patched fields", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme", Domain: "acme.io", Price: 10})
		require.NoError(t, err)

		notes := "called twice"
		updated, err := s.Update(ctx, opp.ID, domain.OpportunityPatch{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, "called twice", updated.Notes)
		assert.Equal(t, "acme.io", updated.Domain)
		assert.Equal(t, 10.0, updated.Price)

		stored, err := s.Get(opp.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, stored)
	})

	t.Run("clearing customer name is rejected", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)

		empty := ""
		_, err = s.Update(ctx, opp.ID, domain.OpportunityPatch{CustomerName: &empty})
		assert.ErrorIs(t, err, domain.ErrValidation)

		stored, _ := s.Get(opp.ID)
		assert.Equal(t, opp, stored)
	})

	t.Run("clicks cannot decrease", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)

		ten := int64(10)
		_, err = s.Update(ctx, opp.ID, domain.OpportunityPatch{Clicks: &ten})
		require.NoError(t, err)

		same := int64(10)
		_, err = s.Update(ctx, opp.ID, domain.OpportunityPatch{Clicks: &same})
		require.NoError(t, err)

		lower := int64(3)
		_, err = s.Update(ctx, opp.ID, domain.OpportunityPatch{Clicks: &lower})
		assert.ErrorIs(t, err, domain.ErrValidation)

		stored, _ := s.Get(opp.ID)
		assert.Equal(t, int64(10), stored.Clicks)
	})

	t.Run("missing id is not found", func(t *testing.T) {
		s := newStore(t, nil, newFakeClock())
		_, err := s.Update(ctx, 42, domain.OpportunityPatch{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("backend failure keeps previous record", func(t *testing.T) {
		backend := &fakeBackend{}
		s := newStore(t, backend, newFakeClock())
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		require.NoError(t, err)

		backend.fail = errors.New("timeout")
		name := "Other"
		_, err = s.Update(ctx, opp.ID, domain.OpportunityPatch{CustomerName: &name})
		require.Error(t, err)

		stored, _ := s.Get(opp.ID)
		assert.Equal(t, "Acme", stored.CustomerName)
	})
}

func TestOpportunityStore_Reassign(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil, newFakeClock())
	opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme", Notes: "keep"})
	require.NoError(t, err)

	updated, err := s.Reassign(ctx, opp.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.AssignedUser)
	assert.Equal(t, "keep", updated.Notes)

	ids, err := s.ClearAssignee(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{opp.ID}, ids)
	stored, _ := s.Get(opp.ID)
	assert.Equal(t, domain.Unassigned, stored.AssignedUser)
}

func TestOpportunityStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil, newFakeClock())
	a, _ := s.Add(ctx, domain.Opportunity{CustomerName: "A"})
	b, _ := s.Add(ctx, domain.Opportunity{CustomerName: "B"})
	c, _ := s.Add(ctx, domain.Opportunity{CustomerName: "C"})

	require.NoError(t, s.Remove(ctx, b.ID))

	err := s.Remove(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, c.ID, list[1].ID)

	got, err := s.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", got.CustomerName)
}

func TestOpportunityStore_Load(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{opportunities: []domain.Opportunity{
		{ID: 4, CustomerName: "Four", Status: domain.StatusNew},
		{ID: 9, CustomerName: "Nine", Status: domain.StatusRegistered},
	}}
	s := newStore(t, backend, newFakeClock())
	require.NoError(t, s.Load(ctx))
	require.Equal(t, 2, s.Len())

	opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Ten"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), opp.ID)

	t.Run("load failure is reported", func(t *testing.T) {
		backend.fail = errors.New("down")
		assert.Error(t, s.Load(ctx))
		assert.Equal(t, 3, s.Len())
	})
}

// blockingBackend parks ListOpportunities until release is closed
type blockingBackend struct {
	*fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) ListOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	close(b.entered)
	<-b.release
	return b.fakeBackend.ListOpportunities(ctx)
}

func TestOpportunityStore_LoadDoesNotDropConcurrentAdd(t *testing.T) {
	ctx := context.Background()
	backend := &blockingBackend{
		fakeBackend: &fakeBackend{},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := newStore(t, backend, newFakeClock())

	loadErr := make(chan error, 1)
	go func() { loadErr <- s.Load(ctx) }()
	<-backend.entered

	type addResult struct {
		opp domain.Opportunity
		err error
	}
	added := make(chan addResult, 1)
	go func() {
		opp, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
		added <- addResult{opp, err}
	}()

	time.Sleep(20 * time.Millisecond)
	close(backend.release)

	require.NoError(t, <-loadErr)
	res := <-added
	require.NoError(t, res.err)

	assert.Equal(t, 1, s.Len())
	got, err := s.Get(res.opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.CustomerName)
}

func TestOpportunityStore_Events(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil, newFakeClock())

	var kinds []store.EventKind
	unsubscribe := s.Notifier().Subscribe(func(e store.Event) {
		kinds = append(kinds, e.Kind)
	})

	opp, _ := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
	_, _ = s.Update(ctx, opp.ID, domain.OpportunityPatch{})
	_ = s.Remove(ctx, opp.ID)
	_ = s.Remove(ctx, opp.ID)

	assert.Equal(t, []store.EventKind{
		store.EventOpportunityCreated,
		store.EventOpportunityUpdated,
		store.EventOpportunityDeleted,
	}, kinds)

	assert.Equal(t, 1, s.Notifier().Subscribers())
	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, s.Notifier().Subscribers())
	_, _ = s.Add(ctx, domain.Opportunity{CustomerName: "Other"})
	assert.Len(t, kinds, 3)
}

func TestOpportunityStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, &fakeBackend{}, newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, domain.Opportunity{CustomerName: "Acme"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, opp := range s.List() {
		assert.False(t, seen[opp.ID], "duplicate id %d", opp.ID)
		seen[opp.ID] = true
	}
	assert.Len(t, seen, 50)
}
