package handler

import (
	"net/http"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/service"
)

// DashboardHandler serves the dashboard summary, alerts, and routes.
type DashboardHandler struct {
	events *service.Events
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(events *service.Events) *DashboardHandler {
	return &DashboardHandler{events: events}
}

// Summary returns the dashboard counters. Requires the dashboard view
// grant.
// GET /api/v1/dashboard/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Dashboard }) == nil {
		return
	}
	summary, err := h.events.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListAlerts returns the newest alerts. Requires the alerts view grant.
// GET /api/v1/alerts
func (h *DashboardHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Alerts }) == nil {
		return
	}
	alerts, err := h.events.Alerts(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ListRoutes returns the collection routes. Requires the routes view grant.
// GET /api/v1/routes
func (h *DashboardHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Routes }) == nil {
		return
	}
	routes, err := h.events.Routes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}
