package handler

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response wrapper for every API route. StatusCode mirrors
// the HTTP status of the response.
type Envelope struct {
	Data       any               `json:"data"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors"`
	StatusCode int               `json:"status_code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Message: msg, StatusCode: status})
}

func writeData(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, Envelope{Data: data, Message: msg, StatusCode: status})
}

func writeErrors(w http.ResponseWriter, status int, msg string, errs map[string]string) {
	writeJSON(w, status, Envelope{Message: msg, Errors: errs, StatusCode: status})
}
