package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/patrickcap/exploronomics/logging"
)

// APIVersion is reported in the meta block of every successful response
const APIVersion = "1.0.0"

// Error codes used in the error envelope
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeNotFound      = "NOT_FOUND"
	CodeInternalError = "INTERNAL_ERROR"
)

// writeData writes data inside the standard response envelope
func writeData(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"meta": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   APIVersion,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Warn("api", "Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// writeError writes the error envelope
func writeError(w http.ResponseWriter, status int, code, message string) {
	response := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Warn("api", "Failed to encode error response", map[string]interface{}{"error": err.Error()})
	}
}
