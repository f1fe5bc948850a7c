package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"time"

	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/infrastructure/sns"
	"github.com/payfone/prefill-verify/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// e164 is the strict production phone format; non-production environments
// accept any 12-character number so sandbox test numbers pass.
var e164 = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)

type CreateSessionRequest struct {
	UserID      string `json:"userId" validate:"required"`
	SessionID   string `json:"sessionId" validate:"required"`
	IsMobile    bool   `json:"isMobile"`
	CallbackURL string `json:"callbackUrl" validate:"omitempty,url"`
}

type TokenResult struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
}

type SubmitPhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	SourceIP    string `json:"sourceIP"`
	Last4       string `json:"last4"`
}

type ConfirmLinkRequest struct {
	Fingerprint  string
	UserAuthGuid string
	IsMobile     bool
}

type ConfirmLinkResult struct {
	Verified    bool
	IsMobile    bool
	AccessToken string
	Last4       string
}

type VerifyIdentityRequest struct {
	Last4 string `json:"last4"`
	DOB   string `json:"dob"`
}

type IdentityProbeResult struct {
	Verified            bool
	ManualEntryRequired bool
	PrefillData         *domain.IdentityResponse
}

type ConfirmIdentityResult struct {
	Verified            bool
	OwnershipCapReached bool
}

type StatusResult struct {
	State    domain.AuthState `json:"state"`
	IsMobile bool             `json:"isMobile"`
}

// Service drives the three-stage verification flow against one record.
type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*TokenResult, error)
	SubmitPhone(ctx context.Context, recordID string, req SubmitPhoneRequest) error
	ResendLink(ctx context.Context, recordID string) error
	ConfirmLink(ctx context.Context, recordID string, req ConfirmLinkRequest) (*ConfirmLinkResult, error)
	CheckEligibility(ctx context.Context, recordID string) error
	VerifyIdentity(ctx context.Context, recordID string, req VerifyIdentityRequest) (*IdentityProbeResult, error)
	ConfirmIdentity(ctx context.Context, recordID string, profile domain.IdentityProfile) (*ConfirmIdentityResult, error)
	Status(ctx context.Context, recordID string) (*StatusResult, error)
}

// ServiceDeps holds everything the verification service needs.
type ServiceDeps struct {
	Records        RecordStore
	Snapshots      SnapshotStore
	Prove          ProveClient
	SMS            sns.SMSSender
	JWTProvider    TokenSigner
	Audit          AuditArchiver
	AppEnv         string
	Caps           Caps
	FinalTargetURL string
	Now            func() time.Time
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	return &service{deps: deps}
}

func (s *service) stageDeps() StageDeps {
	return StageDeps{
		Records:        s.deps.Records,
		Snapshots:      s.deps.Snapshots,
		Prove:          s.deps.Prove,
		SMS:            s.deps.SMS,
		Audit:          s.deps.Audit,
		Caps:           s.deps.Caps,
		FinalTargetURL: s.deps.FinalTargetURL,
		Now:            s.deps.Now,
	}
}

func (s *service) CreateSession(ctx context.Context, req CreateSessionRequest) (*TokenResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	rec, err := s.deps.Records.FindOrCreate(ctx, req.UserID, req.SessionID, req.IsMobile, req.CallbackURL)
	if err != nil {
		return nil, err
	}
	token, err := s.deps.JWTProvider.Sign(rec.UserID, rec.SessionID, rec.RecordID, rec.IsMobile)
	if err != nil {
		return nil, err
	}
	return &TokenResult{TokenType: "Bearer", AccessToken: token}, nil
}

func (s *service) SubmitPhone(ctx context.Context, recordID string, req SubmitPhoneRequest) error {
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if req.SourceIP == "" {
		req.SourceIP = "127.0.0.1"
	}
	if !s.validPhoneNumber(req.PhoneNumber) || net.ParseIP(req.SourceIP) == nil {
		return fmt.Errorf("invalid phone number or source IP: %w", domain.ErrBadRequest)
	}

	snapshot, err := s.deps.Snapshots.GetRequest(ctx, recordID, domain.StagePossession)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		snapshot = &domain.RequestSnapshot{RecordID: recordID, Stage: domain.StagePossession}
	}
	snapshot.Payload.MobileNumber = req.PhoneNumber
	snapshot.Payload.SourceIP = req.SourceIP
	if req.Last4 != "" {
		snapshot.Payload.Last4 = req.Last4
	}
	if err := s.deps.Snapshots.PutRequest(ctx, snapshot); err != nil {
		return err
	}

	_, err = s.withConflictRetry(func() (*Outcome, error) {
		return NewPossessionOrchestrator(s.stageDeps(), recordID).Execute(ctx)
	})
	return err
}

func (s *service) ResendLink(ctx context.Context, recordID string) error {
	// Cap and interval gates live inside the orchestrator.
	_, err := s.withConflictRetry(func() (*Outcome, error) {
		return NewPossessionOrchestrator(s.stageDeps(), recordID).Execute(ctx)
	})
	return err
}

func (s *service) ConfirmLink(ctx context.Context, recordID string, req ConfirmLinkRequest) (*ConfirmLinkResult, error) {
	if req.Fingerprint == "" || req.UserAuthGuid == "" {
		return nil, fmt.Errorf("both vfp and userAuthGuid are required: %w", domain.ErrBadRequest)
	}
	outcome, err := s.withConflictRetry(func() (*Outcome, error) {
		return NewPossessionOrchestrator(s.stageDeps(), recordID).Finalize(ctx, FinalizeInput{Fingerprint: req.Fingerprint})
	})
	if err != nil {
		return nil, err
	}
	result := &ConfirmLinkResult{Verified: outcome.Verified}
	if !outcome.Verified {
		return result, nil
	}

	rec, err := s.deps.Records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	// Token handoff applies only to sessions started on a mobile device and
	// confirmed from one.
	if !rec.IsMobile || !req.IsMobile {
		return result, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.UserAuthGuidHash), []byte(req.UserAuthGuid)) != nil {
		return nil, fmt.Errorf("unknown handoff guid: %w", domain.ErrUnauthorized)
	}
	result.IsMobile = true
	if possession, err := s.deps.Snapshots.GetRequest(ctx, recordID, domain.StagePossession); err == nil {
		result.Last4 = possession.Payload.Last4
	}
	// A claimed guid stays valid for idempotent re-confirmation but never
	// mints a second token.
	if rec.UserAuthGuidClaimed {
		return result, nil
	}
	if err := s.deps.Records.UpdateWithCounter(ctx, recordID, rec.StateCounter, map[string]interface{}{
		"user_auth_guid_claimed": true,
	}); err != nil {
		return nil, err
	}
	token, err := s.deps.JWTProvider.Sign(rec.UserID, rec.SessionID, rec.RecordID, rec.IsMobile)
	if err != nil {
		return nil, err
	}
	result.AccessToken = token
	return result, nil
}

func (s *service) CheckEligibility(ctx context.Context, recordID string) error {
	_, err := s.withConflictRetry(func() (*Outcome, error) {
		return NewReputationOrchestrator(s.stageDeps(), recordID).Execute(ctx)
	})
	return err
}

func (s *service) VerifyIdentity(ctx context.Context, recordID string, req VerifyIdentityRequest) (*IdentityProbeResult, error) {
	if req.Last4 == "" && req.DOB == "" {
		return nil, fmt.Errorf("date of birth and/or last 4 of SSN is required: %w", domain.ErrBadRequest)
	}
	outcome, err := s.withConflictRetry(func() (*Outcome, error) {
		return NewOwnershipOrchestrator(s.stageDeps(), recordID, req.Last4, req.DOB).Execute(ctx)
	})
	if err != nil {
		return nil, err
	}
	result := &IdentityProbeResult{
		Verified:            outcome.Verified,
		ManualEntryRequired: outcome.ManualEntryRequired,
	}
	if !outcome.Verified {
		return result, nil
	}
	// Read the prefill data back from the persisted snapshot rather than the
	// in-flight outcome, so the client sees exactly what later reads will.
	snapshot, err := s.deps.Snapshots.GetResponse(ctx, recordID, domain.StageOwnership)
	if err != nil {
		return nil, err
	}
	if !snapshot.Payload.Identity.ManualEntryRequired {
		result.PrefillData = snapshot.Payload.Identity
	}
	return result, nil
}

func (s *service) ConfirmIdentity(ctx context.Context, recordID string, profile domain.IdentityProfile) (*ConfirmIdentityResult, error) {
	if err := validate.Struct(&profile); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	outcome, err := s.withConflictRetry(func() (*Outcome, error) {
		return NewOwnershipOrchestrator(s.stageDeps(), recordID, profile.Last4, profile.DOB).
			Finalize(ctx, FinalizeInput{Profile: &profile})
	})
	if err != nil {
		if outcome != nil && outcome.OwnershipCapReached {
			return &ConfirmIdentityResult{OwnershipCapReached: true}, err
		}
		return nil, err
	}
	return &ConfirmIdentityResult{
		Verified:            outcome.Verified,
		OwnershipCapReached: outcome.OwnershipCapReached,
	}, nil
}

func (s *service) Status(ctx context.Context, recordID string) (*StatusResult, error) {
	rec, err := s.deps.Records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{State: rec.State, IsMobile: rec.IsMobile}, nil
}

// withConflictRetry reruns a stage call once when it loses the optimistic
// counter check; the rerun reloads the record, so it runs against fresh
// state. A second conflict is surfaced to the caller.
func (s *service) withConflictRetry(fn func() (*Outcome, error)) (*Outcome, error) {
	outcome, err := fn()
	if err != nil && errors.Is(err, domain.ErrConflict) {
		slog.Warn("stage lost optimistic check, retrying once", "err", err)
		return fn()
	}
	return outcome, err
}

func (s *service) validPhoneNumber(phone string) bool {
	if s.deps.AppEnv == "production" {
		return e164.MatchString(phone)
	}
	return len(phone) == 12
}
