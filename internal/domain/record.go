package domain

import (
	"fmt"
	"time"
)

// PrefillRecord is the durable row tracking one verification attempt.
// Records are created once per (user_id, session_id) pair, mutated only by the
// stage orchestrators and never hard-deleted; they double as an audit trail.
type PrefillRecord struct {
	RecordID  string `json:"id" dynamodbav:"record_id"`
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	SessionID string `json:"session_id" dynamodbav:"session_id"`
	// UserSession is the "<user_id>#<session_id>" composite used by the
	// find-or-create GSI.
	UserSession string `json:"-" dynamodbav:"user_session"`
	IsMobile    bool   `json:"is_mobile" dynamodbav:"is_mobile"`

	State AuthState `json:"state" dynamodbav:"state"`
	// StateCounter increments on every persisted mutation. Writers condition
	// their update on the value they read, so a stale writer fails with
	// ErrConflict instead of overwriting newer state.
	StateCounter int64 `json:"state_counter" dynamodbav:"state_counter"`

	SMSSentCount        int        `json:"sms_sent_count" dynamodbav:"sms_sent_count"`
	SMSSentAt           *time.Time `json:"sms_sent_at,omitempty" dynamodbav:"sms_sent_at,omitempty"`
	OwnershipCheckCount int        `json:"ownership_check_count" dynamodbav:"ownership_check_count"`
	Verified            bool       `json:"verified" dynamodbav:"verified"`
	ManualEntryRequired bool       `json:"manual_entry_required" dynamodbav:"manual_entry_required"`

	// UserAuthGuidHash is the bcrypt hash of the mobile-handoff guid. The
	// plaintext guid travels only inside the instant link; a leaked row cannot
	// be replayed.
	UserAuthGuidHash    string `json:"-" dynamodbav:"user_auth_guid_hash"`
	UserAuthGuidClaimed bool   `json:"user_auth_guid_claimed" dynamodbav:"user_auth_guid_claimed"`

	CallbackURL string    `json:"callback_url,omitempty" dynamodbav:"callback_url"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

// UserSessionKey builds the composite GSI key for a (user, session) pair.
func UserSessionKey(userID, sessionID string) string {
	return fmt.Sprintf("%s#%s", userID, sessionID)
}

// RequestPayload is the last outbound payload sent to the provider for a
// stage. Overwritten on each stage re-invocation.
type RequestPayload struct {
	MobileNumber            string `json:"mobile_number,omitempty" dynamodbav:"mobile_number"`
	SourceIP                string `json:"source_ip,omitempty" dynamodbav:"source_ip"`
	Last4                   string `json:"last4,omitempty" dynamodbav:"last4"`
	DOB                     string `json:"dob,omitempty" dynamodbav:"dob"`
	VerificationFingerprint string `json:"verification_fingerprint,omitempty" dynamodbav:"verification_fingerprint"`
}

// RequestSnapshot is the per-stage outbound payload attached to a record.
type RequestSnapshot struct {
	RecordID  string         `json:"record_id" dynamodbav:"record_id"`
	Stage     Stage          `json:"stage" dynamodbav:"stage"`
	Payload   RequestPayload `json:"payload" dynamodbav:"payload"`
	UpdatedAt time.Time      `json:"updated" dynamodbav:"updated_at"`
}

// ResponsePayload holds the provider result fields a stage persists. Later
// stages read earlier snapshots instead of recalling the provider.
type ResponsePayload struct {
	TrustScore  int               `json:"trust_score,omitempty" dynamodbav:"trust_score"`
	LinkClicked bool              `json:"link_clicked,omitempty" dynamodbav:"link_clicked"`
	PhoneMatch  string            `json:"phone_match,omitempty" dynamodbav:"phone_match"`
	Identity    *IdentityResponse `json:"identity,omitempty" dynamodbav:"identity,omitempty"`
}

// ResponseSnapshot is a provider result tagged with the producing stage and
// the record state at write time.
type ResponseSnapshot struct {
	RecordID    string          `json:"record_id" dynamodbav:"record_id"`
	Stage       Stage           `json:"stage" dynamodbav:"stage"`
	ParentState AuthState       `json:"parent_state" dynamodbav:"parent_state"`
	Payload     ResponsePayload `json:"payload" dynamodbav:"payload"`
	UpdatedAt   time.Time       `json:"updated" dynamodbav:"updated_at"`
}

// ColatedRecord is a record joined with its current snapshots, as loaded by
// the stage lifecycle before any orchestrator method runs.
type ColatedRecord struct {
	Record    *PrefillRecord
	Requests  map[Stage]*RequestSnapshot
	Responses map[Stage]*ResponseSnapshot
}

// Request returns the request snapshot for a stage, or an empty one bound to
// the record so callers can merge into it.
func (c *ColatedRecord) Request(stage Stage) *RequestSnapshot {
	if s, ok := c.Requests[stage]; ok {
		return s
	}
	return &RequestSnapshot{RecordID: c.Record.RecordID, Stage: stage}
}

// Response returns the response snapshot for a stage, or nil.
func (c *ColatedRecord) Response(stage Stage) *ResponseSnapshot {
	return c.Responses[stage]
}
