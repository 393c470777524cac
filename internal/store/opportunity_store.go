package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"go.uber.org/zap"
)

// OpportunityStore is the single authoritative opportunity collection.
// All mutations are serialized; a backend failure leaves memory unchanged.
type OpportunityStore struct {
	mu      sync.RWMutex
	items   []domain.Opportunity
	index   map[int64]int
	lastID  int64
	backend OpportunityBackend
	clock   func() time.Time
	events  *Notifier
	logger  *zap.Logger
}

// NewOpportunityStore creates an empty store. backend may be nil for a memory-only store.
func NewOpportunityStore(backend OpportunityBackend, logger *zap.Logger, opts ...Option) *OpportunityStore {
	o := buildOptions(opts)
	return &OpportunityStore{
		index:   make(map[int64]int),
		backend: backend,
		clock:   o.clock,
		events:  o.notifier,
		logger:  logger,
	}
}

// Notifier returns the notifier this store publishes to
func (s *OpportunityStore) Notifier() *Notifier {
	return s.events
}

// Load replaces the in-memory collection with the backend contents. The
// write lock is held across the backend read so no mutation can land between
// the snapshot and the swap.
func (s *OpportunityStore) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	s.mu.Lock()
	opps, err := s.backend.ListOpportunities(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to load opportunities: %w", err)
	}
	s.items = make([]domain.Opportunity, 0, len(opps))
	s.index = make(map[int64]int, len(opps))
	for _, opp := range opps {
		if _, dup := s.index[opp.ID]; dup {
			s.logger.Warn("duplicate opportunity id from data store, keeping first", zap.Int64("opportunity_id", opp.ID))
			continue
		}
		s.index[opp.ID] = len(s.items)
		s.items = append(s.items, opp)
		if opp.ID > s.lastID {
			s.lastID = opp.ID
		}
	}
	count := len(s.items)
	s.mu.Unlock()

	s.logger.Info("Opportunity store loaded", zap.Int("count", count))
	s.events.Publish(Event{Kind: EventOpportunitiesLoaded, At: s.clock()})
	return nil
}

// List returns copies of all opportunities in insertion order
func (s *OpportunityStore) List() []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Opportunity, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of opportunities
func (s *OpportunityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns a copy of the opportunity with id
func (s *OpportunityStore) Get(id int64) (domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return domain.Opportunity{}, &domain.NotFoundError{Resource: "opportunity", ID: id}
	}
	return s.items[pos], nil
}

// Exists reports whether id is present
func (s *OpportunityStore) Exists(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Add validates candidate and inserts it with a fresh id.
// ID, DateCreated, LastUpdate and Clicks on the candidate are ignored.
func (s *OpportunityStore) Add(ctx context.Context, candidate domain.Opportunity) (domain.Opportunity, error) {
	if candidate.Status == "" {
		candidate.Status = domain.StatusNew
	}
	candidate.Clicks = 0
	if err := validateOpportunity(&candidate); err != nil {
		return domain.Opportunity{}, err
	}

	s.mu.Lock()
	now := s.clock()
	opp := candidate
	opp.ID = s.nextID()
	opp.DateCreated = now
	opp.LastUpdate = now

	if s.backend != nil {
		if err := s.backend.CreateOpportunity(detach(ctx), &opp); err != nil {
			s.mu.Unlock()
			return domain.Opportunity{}, fmt.Errorf("failed to create opportunity: %w", err)
		}
	}

	s.lastID = opp.ID
	s.index[opp.ID] = len(s.items)
	s.items = append(s.items, opp)
	s.mu.Unlock()

	s.events.Publish(Event{Kind: EventOpportunityCreated, OpportunityID: opp.ID, At: now})
	return opp, nil
}

// Update applies patch to the opportunity with id. LastUpdate is always
// refreshed and Clicks may only grow.
func (s *OpportunityStore) Update(ctx context.Context, id int64, patch domain.OpportunityPatch) (domain.Opportunity, error) {
	s.mu.Lock()
	pos, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return domain.Opportunity{}, &domain.NotFoundError{Resource: "opportunity", ID: id}
	}

	prev := s.items[pos]
	next := prev
	patch.Apply(&next)
	next.ID = prev.ID
	next.DateCreated = prev.DateCreated
	if err := validateOpportunity(&next); err != nil {
		s.mu.Unlock()
		return domain.Opportunity{}, err
	}
	if next.Clicks < prev.Clicks {
		s.mu.Unlock()
		return domain.Opportunity{}, domain.NewValidationError("clicks", fmt.Sprintf("cannot decrease below %d", prev.Clicks))
	}
	next.LastUpdate = s.stamp(prev)

	if s.backend != nil {
		if err := s.backend.UpdateOpportunity(detach(ctx), &next); err != nil {
			s.mu.Unlock()
			return domain.Opportunity{}, fmt.Errorf("failed to update opportunity %d: %w", id, err)
		}
	}

	s.items[pos] = next
	s.mu.Unlock()

	s.events.Publish(Event{Kind: EventOpportunityUpdated, OpportunityID: id, At: next.LastUpdate})
	return next, nil
}

// Reassign changes only the assigned user
func (s *OpportunityStore) Reassign(ctx context.Context, id, userID int64) (domain.Opportunity, error) {
	return s.Update(ctx, id, domain.OpportunityPatch{AssignedUser: &userID})
}

// Remove deletes the opportunity with id. Removing an absent id is an error.
func (s *OpportunityStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	pos, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return &domain.NotFoundError{Resource: "opportunity", ID: id}
	}

	if s.backend != nil {
		if err := s.backend.DeleteOpportunity(detach(ctx), id); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to delete opportunity %d: %w", id, err)
		}
	}

	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}
	s.mu.Unlock()

	s.events.Publish(Event{Kind: EventOpportunityDeleted, OpportunityID: id, At: s.clock()})
	return nil
}

// ClearAssignee unassigns every opportunity owned by userID and returns the affected ids
func (s *OpportunityStore) ClearAssignee(ctx context.Context, userID int64) ([]int64, error) {
	if userID == domain.Unassigned {
		return nil, nil
	}
	ids := s.AssignedTo(userID)
	for _, id := range ids {
		if _, err := s.Reassign(ctx, id, domain.Unassigned); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// AssignedTo returns the ids of opportunities owned by userID in insertion order
func (s *OpportunityStore) AssignedTo(userID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, opp := range s.items {
		if opp.AssignedUser == userID {
			ids = append(ids, opp.ID)
		}
	}
	return ids
}

// nextID must be called with mu held. Ids are never reused after removal.
func (s *OpportunityStore) nextID() int64 {
	return s.lastID + 1
}

// stamp returns the new LastUpdate for prev, never earlier than its current value
func (s *OpportunityStore) stamp(prev domain.Opportunity) time.Time {
	now := s.clock()
	if now.Before(prev.LastUpdate) {
		now = prev.LastUpdate
	}
	if now.Before(prev.DateCreated) {
		now = prev.DateCreated
	}
	return now
}

func validateOpportunity(opp *domain.Opportunity) error {
	if strings.TrimSpace(opp.CustomerName) == "" {
		return domain.NewValidationError("customerName", "is required")
	}
	if opp.Price < 0 {
		return domain.NewValidationError("price", "must be greater than or equal to 0")
	}
	if opp.Clicks < 0 {
		return domain.NewValidationError("clicks", "must be greater than or equal to 0")
	}
	if !opp.Status.IsValid() {
		return &domain.InvalidStatusError{Status: string(opp.Status)}
	}
	if opp.AssignedUser < 0 {
		return domain.NewValidationError("assignedUser", "must be a user id or 0")
	}
	return nil
}
