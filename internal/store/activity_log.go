package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"go.uber.org/zap"
)

// ActivityLog is the append-only history of interactions per opportunity.
// Entries are never edited or deleted, including those of removed opportunities.
type ActivityLog struct {
	mu            sync.RWMutex
	entries       []domain.Activity
	byOpportunity map[int64][]int
	lastID        int64
	opportunities *OpportunityStore
	backend       ActivityBackend
	clock         func() time.Time
	events        *Notifier
	logger        *zap.Logger
}

// NewActivityLog creates an empty log validated against opportunities
func NewActivityLog(opportunities *OpportunityStore, backend ActivityBackend, logger *zap.Logger, opts ...Option) *ActivityLog {
	o := buildOptions(append([]Option{WithNotifier(opportunities.Notifier())}, opts...))
	return &ActivityLog{
		byOpportunity: make(map[int64][]int),
		opportunities: opportunities,
		backend:       backend,
		clock:         o.clock,
		events:        o.notifier,
		logger:        logger,
	}
}

// Load replaces the in-memory log with the backend contents, holding the
// write lock across the backend read
func (l *ActivityLog) Load(ctx context.Context) error {
	if l.backend == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	activities, err := l.backend.ListActivities(ctx)
	if err != nil {
		return fmt.Errorf("failed to load activities: %w", err)
	}
	l.entries = make([]domain.Activity, 0, len(activities))
	l.byOpportunity = make(map[int64][]int)
	for _, a := range activities {
		l.insert(a)
	}
	l.logger.Info("Activity log loaded", zap.Int("count", len(l.entries)))
	return nil
}

// Append records a new activity. The opportunity must exist at append time.
// candidate.ID and candidate.Timestamp are assigned by the log.
func (l *ActivityLog) Append(ctx context.Context, candidate domain.Activity) (domain.Activity, error) {
	if !candidate.Type.IsValid() {
		return domain.Activity{}, domain.NewValidationError("type", fmt.Sprintf("unknown activity type %q", candidate.Type))
	}

	l.mu.Lock()
	if !l.opportunities.Exists(candidate.OpportunityID) {
		l.mu.Unlock()
		return domain.Activity{}, &domain.NotFoundError{Resource: "opportunity", ID: candidate.OpportunityID}
	}

	activity := candidate
	activity.ID = l.lastID + 1
	activity.Timestamp = l.clock()

	if l.backend != nil {
		if err := l.backend.CreateActivity(detach(ctx), &activity); err != nil {
			l.mu.Unlock()
			return domain.Activity{}, fmt.Errorf("failed to create activity: %w", err)
		}
	}

	l.insert(activity)
	l.mu.Unlock()

	l.events.Publish(Event{
		Kind:          EventActivityAppended,
		OpportunityID: activity.OpportunityID,
		ActivityID:    activity.ID,
		At:            activity.Timestamp,
	})
	return activity, nil
}

// insert must be called with mu held
func (l *ActivityLog) insert(a domain.Activity) {
	l.byOpportunity[a.OpportunityID] = append(l.byOpportunity[a.OpportunityID], len(l.entries))
	l.entries = append(l.entries, a)
	if a.ID > l.lastID {
		l.lastID = a.ID
	}
}

// ForOpportunity returns the activities for id in insertion order
func (l *ActivityLog) ForOpportunity(id int64) []domain.Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	positions := l.byOpportunity[id]
	out := make([]domain.Activity, len(positions))
	for i, pos := range positions {
		out[i] = l.entries[pos]
	}
	return out
}

// Newest returns the activities for id ordered by timestamp descending.
// Ties keep the later insertion first.
func (l *ActivityLog) Newest(id int64) []domain.Activity {
	out := l.ForOpportunity(id)
	// reverse first so the stable sort leaves later insertions ahead on ties
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Len returns the total number of entries
func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
