package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/service"
)

// RoleHandler manages the role collection.
type RoleHandler struct {
	lifecycle *service.Lifecycle
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(lifecycle *service.Lifecycle) *RoleHandler {
	return &RoleHandler{lifecycle: lifecycle}
}

// ListRoles returns all roles.
// GET /api/v1/roles
func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.lifecycle.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// createRoleRequest is the payload for the CreateRole endpoint.
type createRoleRequest struct {
	Name        string             `json:"name" validate:"required"`
	Power       *int               `json:"power" validate:"required"`
	Permissions *model.Permissions `json:"permissions"`
}

// CreateRole creates a role strictly below the caller's power. Omitted
// permissions default to the lowest-privilege template, never to the
// caller's own grants.
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: name")
		return
	}
	if req.Power == nil {
		writeError(w, http.StatusBadRequest, "Missing required field: power")
		return
	}

	role, err := h.lifecycle.CreateRole(r.Context(), identityRole(r), req.Name, *req.Power, req.Permissions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

// UpdateRole merges a partial update into a role.
// PATCH /api/v1/roles/{roleId}
func (h *RoleHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var patch service.RolePatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	role, err := h.lifecycle.UpdateRole(r.Context(), identityRole(r), chi.URLParam(r, "roleId"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// DeleteRole removes an unreferenced role the caller outranks.
// DELETE /api/v1/roles/{roleId}
func (h *RoleHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.DeleteRole(r.Context(), identityRole(r), chi.URLParam(r, "roleId")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
