package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/service"
	"github.com/britebottle/fleet/internal/store"
)

// validate checks struct tags on request payloads.
var validate = validator.New()

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writeServiceError maps a service-layer error to its HTTP status and writes
// the standard envelope. Authorization failures all map to 403 with the
// sentinel's message, which deliberately never includes power values.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrNotApproved):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrResetTokenInvalid),
		errors.Is(err, service.ErrInvalidRoleRef),
		errors.Is(err, service.ErrInvalidEventType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoRequesterRole),
		errors.Is(err, service.ErrMissingPermission),
		errors.Is(err, service.ErrPowerNotLower),
		errors.Is(err, service.ErrCannotManagePeer),
		errors.Is(err, service.ErrOutrankCurrentRole),
		errors.Is(err, service.ErrOutrankNewRole):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDuplicateRoleName),
		errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrDuplicateSerial),
		errors.Is(err, service.ErrRoleInUse):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal error: "+err.Error())
	}
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}
