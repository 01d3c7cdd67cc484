package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes an error in the API envelope shape.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":        nil,
		"message":     msg,
		"errors":      nil,
		"status_code": status,
	})
}
