package httpapi

import (
	"encoding/json"
	"net/http"
)

// Error is the structured error body for every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

const (
	errCodeBadRequest   = "bad_request"
	errCodeValidation   = "validation_error"
	errCodeUnauthorized = "unauthorized"
	errCodeForbidden    = "forbidden"
	errCodeNotFound     = "not_found"
	errCodeConflict     = "conflict"
	errCodeInternal     = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort write, connection may be gone
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeValidationError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, Error{
		Status:  http.StatusBadRequest,
		Code:    errCodeValidation,
		Message: message,
		Field:   field,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, errCodeBadRequest, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, errCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, errCodeForbidden, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, errCodeNotFound, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, errCodeConflict, message)
}

// writeInternalError surfaces an opaque failure; detail stays in the
// server log.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, errCodeInternal, "internal server error")
}
