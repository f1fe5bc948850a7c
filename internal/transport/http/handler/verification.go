package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/payfone/prefill-verify/internal/application/verification"
	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/transport/http/middleware"
)

// VerificationHandler exposes the staged verification flow.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// CreateToken starts (or resumes) a flow for a (userId, sessionId) pair and
// returns the Bearer token scoped to its record. Public, rate limited.
func (h *VerificationHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req verification.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.CreateSession(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{TokenType: res.TokenType, AccessToken: res.AccessToken})
}

// SubmitPhone stores the phone/IP pair and sends the first instant link.
func (h *VerificationHandler) SubmitPhone(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verification.SubmitPhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SubmitPhone(r.Context(), claims.RecordID, req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{Verified: true})
}

// ResendSMS re-sends the instant link, subject to the resend cap and interval.
func (h *VerificationHandler) ResendSMS(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.ResendLink(r.Context(), claims.RecordID); err != nil {
		if errors.Is(err, domain.ErrCapReached) {
			writeError(w, http.StatusBadRequest, "Limit reached for resending link.")
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{Verified: true})
}

// VerifyInstantLink checks the click result for a fingerprint and, for
// mobile-to-mobile sessions, hands off a fresh token in exchange for the guid.
func (h *VerificationHandler) VerifyInstantLink(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Fingerprint  string `json:"vfp"`
		UserAuthGuid string `json:"userAuthGuid"`
		IsMobile     bool   `json:"isMobile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.ConfirmLink(r.Context(), claims.RecordID, verification.ConfirmLinkRequest{
		Fingerprint:  req.Fingerprint,
		UserAuthGuid: req.UserAuthGuid,
		IsMobile:     req.IsMobile,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	env := VerifiedEnvelope{Verified: res.Verified}
	if res.IsMobile {
		env.IsMobile = boolPtr(true)
		env.AccessToken = res.AccessToken
		env.Last4 = res.Last4
	}
	writeJSON(w, http.StatusOK, env)
}

// CheckEligibility runs the trust-score stage. Provider trouble is reported
// as an unverified result rather than an error so clients can fall back to
// manual entry.
func (h *VerificationHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.CheckEligibility(r.Context(), claims.RecordID); err != nil {
		if errors.Is(err, domain.ErrProvider) {
			writeJSON(w, http.StatusOK, VerifiedEnvelope{Verified: false})
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{Verified: true})
}

// GetIdentity probes the provider with partial PII and returns prefill data
// when the identity resolved without manual entry.
func (h *VerificationHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verification.VerifyIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.VerifyIdentity(r.Context(), claims.RecordID, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotEligible) {
			writeError(w, http.StatusUnprocessableEntity, "Eligibility check is required.")
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{
		Verified:            res.Verified,
		ManualEntryRequired: boolPtr(res.ManualEntryRequired),
		PrefillData:         res.PrefillData,
	})
}

// ConfirmIdentity submits the full profile for the final ownership check.
func (h *VerificationHandler) ConfirmIdentity(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var profile domain.IdentityProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.ConfirmIdentity(r.Context(), claims.RecordID, profile)
	if err != nil {
		if errors.Is(err, domain.ErrCapReached) && res != nil {
			writeJSON(w, http.StatusOK, VerifiedEnvelope{
				Verified:            false,
				OwnershipCapReached: boolPtr(true),
			})
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{
		Verified:            res.Verified,
		OwnershipCapReached: boolPtr(res.OwnershipCapReached),
	})
}

// Status reports the flow state for polling clients.
func (h *VerificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.svc.Status(r.Context(), claims.RecordID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{State: res.State, IsMobile: res.IsMobile})
}
