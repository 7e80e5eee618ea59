package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
	"github.com/britebottle/fleet/internal/service"
)

// CrusherHandler manages the crusher fleet. Every read goes through the
// telemetry mask for the caller's role before serialization.
type CrusherHandler struct {
	fleet *service.Fleet
}

// NewCrusherHandler creates a new CrusherHandler.
func NewCrusherHandler(fleet *service.Fleet) *CrusherHandler {
	return &CrusherHandler{fleet: fleet}
}

// ListCrushers returns the fleet, masked for the caller's role.
// GET /api/v1/crushers
func (h *CrusherHandler) ListCrushers(w http.ResponseWriter, r *http.Request) {
	crushers, err := h.fleet.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	role := identityRole(r)
	out := make([]model.CrusherView, 0, len(crushers))
	for _, c := range crushers {
		out = append(out, rbac.MaskCrusher(c, role))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCrusher returns one crusher, masked for the caller's role.
// GET /api/v1/crushers/{crusherId}
func (h *CrusherHandler) GetCrusher(w http.ResponseWriter, r *http.Request) {
	view, err := h.fleet.Get(r.Context(), chi.URLParam(r, "crusherId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rbac.MaskCrusher(*view, identityRole(r)))
}

// GetCrusherBySerial looks a crusher up by serial.
// GET /api/v1/crushers/serial/{serial}
func (h *CrusherHandler) GetCrusherBySerial(w http.ResponseWriter, r *http.Request) {
	view, err := h.fleet.GetBySerial(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rbac.MaskCrusher(*view, identityRole(r)))
}

// CreateCrusher registers a new crusher. Requires the settings view grant.
// POST /api/v1/crushers
func (h *CrusherHandler) CreateCrusher(w http.ResponseWriter, r *http.Request) {
	identity := requireView(w, r, func(v model.ViewGrants) bool { return v.Settings })
	if identity == nil {
		return
	}
	var req service.CrusherInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	view, err := h.fleet.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rbac.MaskCrusher(*view, identity.Role))
}

// UpdateCrusher merges a partial update into a crusher record.
// PATCH /api/v1/crushers/{crusherId}
func (h *CrusherHandler) UpdateCrusher(w http.ResponseWriter, r *http.Request) {
	identity := requireView(w, r, func(v model.ViewGrants) bool { return v.Settings })
	if identity == nil {
		return
	}
	var patch service.CrusherPatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	view, err := h.fleet.Update(r.Context(), chi.URLParam(r, "crusherId"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rbac.MaskCrusher(*view, identity.Role))
}

// DeleteCrusher removes a crusher.
// DELETE /api/v1/crushers/{crusherId}
func (h *CrusherHandler) DeleteCrusher(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Settings }) == nil {
		return
	}
	if err := h.fleet.Delete(r.Context(), chi.URLParam(r, "crusherId")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// lockRequest is the payload for the LockCrusher endpoint. Zero hours
// clears an existing lock.
type lockRequest struct {
	Hours int `json:"hours"`
}

// LockCrusher disables a crusher for a number of hours.
// POST /api/v1/crushers/{crusherId}/lock
func (h *CrusherHandler) LockCrusher(w http.ResponseWriter, r *http.Request) {
	identity := requireView(w, r, func(v model.ViewGrants) bool { return v.Settings })
	if identity == nil {
		return
	}
	var req lockRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	actor := identity.Name
	if actor == "" {
		actor = identity.Email
	}
	view, err := h.fleet.Lock(r.Context(), chi.URLParam(r, "crusherId"), req.Hours, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rbac.MaskCrusher(*view, identity.Role))
}
