package helpers

import (
	"encoding/json"
	"log"
	"net/http"
)

// Error codes carried in JSON error bodies
const (
	ErrorCodeValidation   = "validation_error"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeConflict     = "conflict"
	ErrorCodeConfirmation = "confirmation_required"
	ErrorCodeUnavailable  = "unavailable"
	ErrorCodeBackend      = "backend_error"
	ErrorCodeInternal     = "internal_error"
)

// ErrorBody is the payload under "error"
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSONResponse writes data as JSON with the given status
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("❌ Error encoding response: %v", err)
	}
}

// WriteJSONError writes {"error": {"code", "message"}}
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	WriteJSONErrorWithDetails(w, status, code, message, nil)
}

func WriteJSONErrorWithDetails(w http.ResponseWriter, status int, code, message string, details any) {
	WriteJSONResponse(w, status, map[string]ErrorBody{
		"error": {Code: code, Message: message, Details: details},
	})
}
