package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/service"
)

// UserHandler manages user accounts: listing, creation, approval, and role
// assignment.
type UserHandler struct {
	lifecycle *service.Lifecycle
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(lifecycle *service.Lifecycle) *UserHandler {
	return &UserHandler{lifecycle: lifecycle}
}

// ListUsers returns all users with their roles hydrated. Requires the
// users view grant.
// GET /api/v1/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Users }) == nil {
		return
	}
	users, err := h.lifecycle.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser returns one user.
// GET /api/v1/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Users }) == nil {
		return
	}
	user, err := h.lifecycle.UserViewOf(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// CreateUser creates an account administratively: approved immediately.
// POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Users }) == nil {
		return
	}
	var req service.UserInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user, err := h.lifecycle.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	view, err := h.lifecycle.UserViewOf(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// UpdateUser merges a partial update into a user record. Password changes
// are rejected by shape: the patch has no password field, so a client that
// sends one is silently ignored and must use the reset flow.
// PATCH /api/v1/users/{userId}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch service.UserPatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.lifecycle.UpdateUser(r.Context(), chi.URLParam(r, "userId"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user account.
// DELETE /api/v1/users/{userId}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if requireView(w, r, func(v model.ViewGrants) bool { return v.Users }) == nil {
		return
	}
	if err := h.lifecycle.DeleteUser(r.Context(), chi.URLParam(r, "userId")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// approveRequest is the payload for the SetApproval endpoint. The boolean
// is a pointer so an absent field is distinguishable from an explicit
// false: a missing field must never silently pause the target.
type approveRequest struct {
	Approved *bool `json:"approved"`
}

// SetApproval approves or pauses an account. The caller must hold the
// manage-roles permission and strictly outrank the target's role.
// POST /api/v1/users/{userId}/approve
func (h *UserHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Approved == nil {
		writeError(w, http.StatusBadRequest, "Missing required field: approved")
		return
	}

	user, err := h.lifecycle.SetApproval(r.Context(), identityRole(r), chi.URLParam(r, "userId"), *req.Approved)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// AssignRole changes a user's role, referenced by ID or name.
// POST /api/v1/users/{userId}/role
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var ref service.RoleRef
	if err := readJSON(r, &ref); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if ref.ID == "" && ref.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: roleId or roleName")
		return
	}

	user, err := h.lifecycle.AssignRole(r.Context(), identityRole(r), chi.URLParam(r, "userId"), ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
