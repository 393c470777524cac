// Package realtime pushes store change events to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/store"
	"go.uber.org/zap"
)

// Hub fans store events out to the clients allowed to see them
type Hub struct {
	clients    map[*Client]bool
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	events     chan store.Event
	done       chan struct{}
	store      *store.OpportunityStore
	logger     *zap.Logger
}

func NewHub(opportunities *store.OpportunityStore, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan store.Event, 256),
		done:       make(chan struct{}),
		store:      opportunities,
		logger:     logger,
	}
}

// Publish queues an event for delivery. It never blocks the mutating goroutine;
// events are dropped when the queue is full.
func (h *Hub) Publish(event store.Event) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("realtime queue full, dropping event", zap.String("kind", string(event.Kind)))
	}
}

// Run delivers events until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.shutdown()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("realtime client connected",
				zap.Int64("user_id", client.session.UserID),
				zap.Int("total", h.ClientCount()),
			)
		case client := <-h.unregister:
			h.remove(client)
		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(event store.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if h.visible(c.session, event) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(payload) {
			h.remove(c)
		}
	}
}

// visible applies the access policy to an event. Sales only hear about
// opportunities currently assigned to them.
func (h *Hub) visible(session *auth.Session, event store.Event) bool {
	if session.IsAdmin() {
		return true
	}
	switch event.Kind {
	case store.EventOpportunitiesLoaded:
		return true
	case store.EventOpportunityCreated, store.EventOpportunityUpdated, store.EventActivityAppended:
		opp, err := h.store.Get(event.OpportunityID)
		if err != nil {
			return false
		}
		return auth.CanView(session, opp)
	case store.EventUserChanged:
		return event.UserID == session.UserID
	}
	return false
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}
