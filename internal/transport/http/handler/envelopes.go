package handler

import (
	"encoding/json"
	"net/http"

	"github.com/payfone/prefill-verify/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TokenEnvelope wraps session token responses.
type TokenEnvelope struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
}

// VerifiedEnvelope wraps stage results. Only fields relevant to the producing
// endpoint are populated.
type VerifiedEnvelope struct {
	Verified            bool                     `json:"verified"`
	ManualEntryRequired *bool                    `json:"manualEntryRequired,omitempty"`
	OwnershipCapReached *bool                    `json:"ownershipCapReached,omitempty"`
	PrefillData         *domain.IdentityResponse `json:"prefillData,omitempty"`
	IsMobile            *bool                    `json:"isMobile,omitempty"`
	AccessToken         string                   `json:"access_token,omitempty"`
	Last4               string                   `json:"last4,omitempty"`
}

// StatusEnvelope wraps flow status responses.
type StatusEnvelope struct {
	State    domain.AuthState `json:"state"`
	IsMobile bool             `json:"isMobile"`
}

func boolPtr(b bool) *bool { return &b }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
