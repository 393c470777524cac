package store

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventKind names a store change
type EventKind string

const (
	EventOpportunityCreated  EventKind = "opportunity.created"
	EventOpportunityUpdated  EventKind = "opportunity.updated"
	EventOpportunityDeleted  EventKind = "opportunity.deleted"
	EventOpportunitiesLoaded EventKind = "opportunities.loaded"
	EventActivityAppended    EventKind = "activity.appended"
	EventUserChanged         EventKind = "user.changed"
)

// Event is published after a mutation has been applied
type Event struct {
	Kind          EventKind `json:"kind"`
	OpportunityID int64     `json:"opportunityId,omitempty"`
	ActivityID    int64     `json:"activityId,omitempty"`
	UserID        int64     `json:"userId,omitempty"`
	At            time.Time `json:"at"`
}

// Listener receives store events. It runs on the mutating goroutine and must not block.
type Listener func(Event)

// Notifier fans store-changed events out to subscribers
type Notifier struct {
	mu        sync.RWMutex
	listeners map[uint64]Listener
	next      uint64
	logger    *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		listeners: make(map[uint64]Listener),
		logger:    logger,
	}
}

// Subscribe registers l and returns a function that removes it
func (n *Notifier) Subscribe(l Listener) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.listeners[id] = l
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers e to every subscriber. A panicking listener is logged and skipped.
func (n *Notifier) Publish(e Event) {
	n.mu.RLock()
	listeners := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.RUnlock()

	for _, l := range listeners {
		n.deliver(l, e)
	}
}

func (n *Notifier) deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("store listener panicked",
				zap.String("event", string(e.Kind)),
				zap.Any("panic", r),
			)
		}
	}()
	l(e)
}

// Subscribers returns the current subscriber count
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
