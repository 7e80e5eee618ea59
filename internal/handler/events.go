package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/britebottle/fleet/internal/service"
)

// EventHandler serves the event log and per-crusher event feeds.
type EventHandler struct {
	events *service.Events
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.Events) *EventHandler {
	return &EventHandler{events: events}
}

// ListEvents returns events newest first. Supports crusherId, types
// (comma-separated), before (RFC 3339), and limit query parameters.
// GET /api/v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := service.EventFilter{
		CrusherID: queryString(r, "crusherId"),
		Limit:     queryInt(r, "limit", 50),
	}
	if raw := queryString(r, "types"); raw != "" {
		filter.Types = strings.Split(raw, ",")
	}
	if raw := queryString(r, "before"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid before timestamp: "+err.Error())
			return
		}
		filter.Before = &ts
	}

	events, err := h.events.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListCrusherEvents returns one crusher's events.
// GET /api/v1/crushers/{crusherId}/events
func (h *EventHandler) ListCrusherEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context(), service.EventFilter{
		CrusherID: chi.URLParam(r, "crusherId"),
		Limit:     queryInt(r, "limit", 50),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// appendEventRequest is the payload for the AppendEvent endpoint.
type appendEventRequest struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta"`
}

// AppendEvent adds a lifecycle event to a crusher's log, attributed to the
// acting user.
// POST /api/v1/crushers/{crusherId}/events
func (h *EventHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	identity := identityName(r)
	var req appendEventRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: type")
		return
	}

	event, err := h.events.Append(r.Context(), chi.URLParam(r, "crusherId"), req.Type, req.Message, identity, req.Meta)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}
