package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/britebottle/fleet/internal/service"
)

// IngestHandler accepts device-originated reports. These routes sit behind
// the API key check, not the session middleware; responses are therefore
// never masked (devices see their own telemetry).
type IngestHandler struct {
	ingest *service.Ingest
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingest *service.Ingest) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// crushRequest is the payload for the Crush endpoint.
type crushRequest struct {
	Qty int `json:"qty"`
}

// Crush records crushed bottles.
// POST /api/v1/ingest/{crusherId}/crush
func (h *IngestHandler) Crush(w http.ResponseWriter, r *http.Request) {
	var req crushRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	view, err := h.ingest.Crush(r.Context(), chi.URLParam(r, "crusherId"), req.Qty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// emptyRequest is the payload for the Empty endpoint.
type emptyRequest struct {
	Source string `json:"source"`
}

// Empty records a pickup.
// POST /api/v1/ingest/{crusherId}/empty
func (h *IngestHandler) Empty(w http.ResponseWriter, r *http.Request) {
	var req emptyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Source == "" {
		req.Source = "Driver"
	}
	view, err := h.ingest.Empty(r.Context(), chi.URLParam(r, "crusherId"), req.Source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Telemetry applies a sensor report.
// POST /api/v1/ingest/{crusherId}/telemetry
func (h *IngestHandler) Telemetry(w http.ResponseWriter, r *http.Request) {
	var req service.TelemetryInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	view, err := h.ingest.Telemetry(r.Context(), chi.URLParam(r, "crusherId"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// alertRequest is the payload for the RaiseAlert endpoint.
type alertRequest struct {
	Level   string `json:"level"`
	Message string `json:"message" validate:"required"`
}

// RaiseAlert records a device-reported alert.
// POST /api/v1/ingest/{crusherId}/alert
func (h *IngestHandler) RaiseAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: message")
		return
	}
	alert, err := h.ingest.RaiseAlert(r.Context(), chi.URLParam(r, "crusherId"), req.Level, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}
