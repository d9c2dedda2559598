package httpapi

import (
	"encoding/json"
	"net/http"

	"vistora/internal/manager"
	"vistora/pkg/types"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case manager.IsBadRequest(err):
		return http.StatusBadRequest
	case manager.IsNotFound(err):
		return http.StatusNotFound
	case manager.IsInvalidTransition(err):
		return http.StatusConflict
	case manager.IsInsufficientCredits(err):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err and writes the JSON error payload. Server errors are
// logged; their text is still returned since the API is not multi-tenant.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusPaymentRequired:
		IncrementRejected("insufficient_credits")
	case http.StatusConflict:
		IncrementRejected("invalid_transition")
	}
	if status >= 500 {
		logger().Error().Err(err).Str("route", routePatternOrPath(r)).Msg("request failed")
	}
	writeJSONError(w, status, err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Warn().Err(err).Msg("encode response")
	}
}
