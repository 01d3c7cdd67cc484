package handler

import (
	"net/http"
)

// HealthHandler serves the API index and the liveness probe.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Index(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, MsgWelcome)
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
