package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/straye-as/lead-api/internal/auth"
	"github.com/straye-as/lead-api/internal/realtime"
	"go.uber.org/zap"
)

// EventsHandler upgrades authenticated requests to a websocket change feed
type EventsHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventsHandler creates the handler. allowOrigin vets browser origins; when
// nil the upgrader falls back to a same-host check.
func NewEventsHandler(hub *realtime.Hub, allowOrigin func(origin string) bool, logger *zap.Logger) *EventsHandler {
	h := &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
	if allowOrigin != nil {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowOrigin(origin)
		}
	}
	return h
}

// Stream godoc
// @Summary Subscribe to changes
// @Description Websocket feed of store events filtered by the caller's visibility
// @Tags Events
// @Success 101
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /events [get]
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Attach(conn, session)
}
