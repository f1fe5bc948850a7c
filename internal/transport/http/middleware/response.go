package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError rejects a request before it reaches the handler chain. Auth
// and rate-limit failures use it so their bodies match the handlers' JSON
// error shape.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
