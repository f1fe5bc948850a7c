package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/infrastructure/sns"
	"github.com/payfone/prefill-verify/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// PossessionOrchestrator proves the user controls the claimed phone number:
// Execute sends (or resends) the one-time instant link over SMS, Finalize
// polls the provider for the click result by fingerprint.
type PossessionOrchestrator struct {
	stageBase
	prove          ProveClient
	sms            sns.SMSSender
	resendCap      int
	resendInterval time.Duration
	finalTargetURL string
	now            func() time.Time
}

func NewPossessionOrchestrator(d StageDeps, recordID string) *PossessionOrchestrator {
	return &PossessionOrchestrator{
		stageBase:      newStageBase(d, recordID),
		prove:          d.Prove,
		sms:            d.SMS,
		resendCap:      d.Caps.SMSResend,
		resendInterval: d.Caps.SMSResendInterval,
		finalTargetURL: d.FinalTargetURL,
		now:            d.now,
	}
}

// Execute mints a fresh instant link for the phone number in the possession
// request snapshot and delivers it over SMS. The resend cap and minimum
// resend interval are enforced here, not in callers, so the invariants hold
// regardless of entry point. Each send also mints a fresh handoff guid; only
// its bcrypt hash is persisted.
func (p *PossessionOrchestrator) Execute(ctx context.Context) (*Outcome, error) {
	col, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	req := col.Request(domain.StagePossession)
	if req.Payload.MobileNumber == "" || req.Payload.SourceIP == "" {
		return nil, fmt.Errorf("phone number and source IP are required: %w", domain.ErrBadRequest)
	}

	if col.Record.SMSSentCount >= p.resendCap {
		// Exhausting the cap locks the record only while it is still in the
		// possession phase. A stray resend against a session that already
		// clicked the link gets the cap error without touching state.
		if col.Record.State != domain.StateLocked && !col.Record.State.AtLeast(domain.StateSMSClicked) {
			if err := p.persist(ctx, col, map[string]interface{}{"state": domain.StateLocked}); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("limit reached for resending link: %w", domain.ErrCapReached)
	}
	if col.Record.SMSSentAt != nil && p.now().Sub(*col.Record.SMSSentAt) < p.resendInterval {
		return nil, fmt.Errorf("link was sent %s ago: %w", p.now().Sub(*col.Record.SMSSentAt).Round(time.Second), domain.ErrTooSoon)
	}

	guid, err := token.NewGuid()
	if err != nil {
		return nil, err
	}
	guidHash, err := bcrypt.GenerateFromPassword([]byte(guid), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s?userAuthGuid=%s", p.finalTargetURL, guid)
	link, err := p.prove.SendInstantLink(ctx, req.Payload.MobileNumber, req.Payload.SourceIP, target)
	if err != nil {
		return nil, err
	}
	p.archive(ctx, domain.StagePossession, link)

	if p.sms != nil {
		if err := p.sms.SendSMS(ctx, req.Payload.MobileNumber, "Tap to verify your phone: "+link.AuthenticationURL); err != nil {
			slog.Error("instant link SMS delivery failed", "record_id", p.recordID, "err", err)
			return nil, fmt.Errorf("sms delivery: %w", domain.ErrProvider)
		}
	}

	req.Payload.VerificationFingerprint = link.VerificationFingerprint
	if err := p.snapshots.PutRequest(ctx, req); err != nil {
		return nil, err
	}

	now := p.now()
	err = p.persist(ctx, col, map[string]interface{}{
		"state":                  domain.StateSMSSent,
		"sms_sent_count":         col.Record.SMSSentCount + 1,
		"sms_sent_at":            now.Format(time.RFC3339),
		"user_auth_guid_hash":    string(guidHash),
		"user_auth_guid_claimed": false,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Verified: true}, nil
}

// Finalize checks the click result for the fingerprint. The link counts as
// verified when it was clicked and the phone match did not explicitly fail;
// an unclicked link is not an error — callers poll. Repeated calls after
// success are idempotent no-ops.
func (p *PossessionOrchestrator) Finalize(ctx context.Context, input FinalizeInput) (*Outcome, error) {
	if input.Fingerprint == "" {
		return nil, fmt.Errorf("verification fingerprint is required: %w", domain.ErrBadRequest)
	}
	col, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	if col.Record.State.AtLeast(domain.StateSMSClicked) {
		return &Outcome{Verified: true}, nil
	}

	res, err := p.prove.GetInstantLinkResult(ctx, input.Fingerprint)
	if err != nil {
		return nil, err
	}
	p.archive(ctx, domain.StagePossession, res)

	if !res.LinkClicked || res.PhoneMatch == "false" {
		return &Outcome{Verified: false}, nil
	}

	err = p.snapshots.PutResponse(ctx, &domain.ResponseSnapshot{
		RecordID:    p.recordID,
		Stage:       domain.StagePossession,
		ParentState: domain.StateSMSClicked,
		Payload: domain.ResponsePayload{
			LinkClicked: res.LinkClicked,
			PhoneMatch:  res.PhoneMatch,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := p.persist(ctx, col, map[string]interface{}{"state": domain.StateSMSClicked}); err != nil {
		return nil, err
	}
	return &Outcome{Verified: true}, nil
}
