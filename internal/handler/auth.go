package handler

import (
	"log/slog"
	"net/http"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/server/middleware"
	"github.com/britebottle/fleet/internal/service"
)

// AuthHandler serves registration, login, and the password reset flow.
type AuthHandler struct {
	authSvc   *service.AuthService
	lifecycle *service.Lifecycle
	logger    *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. The logger carries issued
// password reset tokens to the operator.
func NewAuthHandler(authSvc *service.AuthService, lifecycle *service.Lifecycle, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, lifecycle: lifecycle, logger: logger}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// Login authenticates a user and returns a JWT session token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.authSvc.TokenTTL().Seconds()),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
	})
}

// Register creates a self-service account. The account starts on the
// lowest-power role and waits for administrator approval before it can log
// in.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.UserInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user, err := h.lifecycle.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      user.ID,
		"email":   user.Email,
		"message": "Registration received, awaiting approval",
	})
}

// forgotRequest is the payload for the ForgotPassword endpoint.
type forgotRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a password reset token. The response is identical
// whether or not the account exists, so the endpoint cannot be used to
// enumerate users. The token is logged for out-of-band delivery; there is
// no mail transport here.
// POST /api/v1/auth/forgot
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	token, found, err := h.lifecycle.CreatePasswordReset(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if found {
		h.logger.Info("password reset token issued", "email", req.Email, "token", token)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "If the account exists, a reset token has been issued",
	})
}

// resetRequest is the payload for the ResetPassword endpoint.
type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword consumes a reset token and sets a new password.
// POST /api/v1/auth/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.lifecycle.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Password updated"})
}

// whoamiResponse describes the acting user and the view surfaces its role
// grants.
type whoamiResponse struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  *model.Role `json:"role,omitempty"`
}

// Whoami returns the resolved identity for the current session, including
// the hydrated role so clients can decide which views to render.
// GET /api/v1/auth/whoami
func (h *AuthHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, whoamiResponse{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
	})
}

// requireView gates a request on one named view grant of the identity's
// role. A nil role has no grants.
func requireView(w http.ResponseWriter, r *http.Request, pick func(model.ViewGrants) bool) *service.Identity {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil
	}
	if identity.Role == nil || !pick(identity.Role.Permissions.View) {
		writeError(w, http.StatusForbidden, "Insufficient permissions")
		return nil
	}
	return identity
}

// identityRole returns the acting role, which may be nil.
func identityRole(r *http.Request) *model.Role {
	if identity := middleware.GetIdentity(r.Context()); identity != nil {
		return identity.Role
	}
	return nil
}

// identityName returns a display name for the acting user, for event
// attribution.
func identityName(r *http.Request) string {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		return "System"
	}
	if identity.Name != "" {
		return identity.Name
	}
	return identity.Email
}
