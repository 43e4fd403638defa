package transport

import (
	"encoding/json"
	"net/http"
)

// Every response carries the success flag so the frontend can branch on a
// single field regardless of status code.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string, details map[string]string) {
	WriteJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
		Details: details,
	})
}
