package handler

import (
	"encoding/json"
	"net/http"
)

// HealthHandler handles the echo endpoint used for connectivity checks.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// Echo returns a pong message; POST bodies are reflected back so clients can
// verify JSON round-trips through proxies.
func (h *HealthHandler) Echo(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.Body != nil {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && len(body) > 0 {
			writeJSON(w, http.StatusOK, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "ok"})
}
