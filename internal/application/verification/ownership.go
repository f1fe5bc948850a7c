package verification

import (
	"context"
	"fmt"

	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/infrastructure/prove"
)

// OwnershipOrchestrator proves the user is the legitimate holder of the
// claimed identity: Execute probes the provider with partial PII (last4/dob),
// Finalize confirms with the full profile under the ownership check cap.
type OwnershipOrchestrator struct {
	stageBase
	prove ProveClient
	cap   int

	// probe arguments, supplied at construction
	last4 string
	dob   string
}

func NewOwnershipOrchestrator(d StageDeps, recordID, last4, dob string) *OwnershipOrchestrator {
	return &OwnershipOrchestrator{
		stageBase: newStageBase(d, recordID),
		prove:     d.Prove,
		cap:       d.Caps.OwnershipCheck,
		last4:     last4,
		dob:       dob,
	}
}

// Execute runs the partial-PII identity lookup. It requires the phone number
// from the possession snapshot and a positive trust score in the reputation
// snapshot; a zero or missing score means eligibility was never established
// and the provider is not contacted.
func (o *OwnershipOrchestrator) Execute(ctx context.Context) (*Outcome, error) {
	col, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	possession := col.Request(domain.StagePossession)
	if possession.Payload.MobileNumber == "" {
		return nil, fmt.Errorf("phone number from possession stage is required: %w", domain.ErrBadRequest)
	}
	rep := col.Response(domain.StageReputation)
	if rep == nil || rep.Payload.TrustScore <= 0 {
		return nil, fmt.Errorf("eligibility check is required: %w", domain.ErrNotEligible)
	}

	last4, dob := o.last4, o.dob
	if last4 == "" {
		last4 = possession.Payload.Last4
	}

	res, err := o.prove.Identity(ctx, possession.Payload.MobileNumber, dob, last4)
	if err != nil {
		return nil, err
	}
	o.archive(ctx, domain.StageOwnership, res)

	identity := toIdentityResponse(res)
	err = o.snapshots.PutRequest(ctx, &domain.RequestSnapshot{
		RecordID: o.recordID,
		Stage:    domain.StageOwnership,
		Payload: domain.RequestPayload{
			MobileNumber: possession.Payload.MobileNumber,
			Last4:        last4,
			DOB:          dob,
		},
	})
	if err != nil {
		return nil, err
	}
	err = o.snapshots.PutResponse(ctx, &domain.ResponseSnapshot{
		RecordID:    o.recordID,
		Stage:       domain.StageOwnership,
		ParentState: domain.StateIdentityVerify,
		Payload:     domain.ResponsePayload{Identity: identity},
	})
	if err != nil {
		return nil, err
	}

	err = o.persist(ctx, col, map[string]interface{}{
		"state":                 domain.StateIdentityVerify,
		"manual_entry_required": res.ManualEntryRequired,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Verified:            res.Verified,
		ManualEntryRequired: res.ManualEntryRequired,
		Identity:            identity,
	}, nil
}

// Finalize sends the full profile for confirmation. Once the cap is reached
// the provider is never contacted again and the outcome always carries
// OwnershipCapReached. The attempt counter is burned before the provider
// call, so a crash mid-call cannot grant a free retry.
func (o *OwnershipOrchestrator) Finalize(ctx context.Context, input FinalizeInput) (*Outcome, error) {
	if input.Profile == nil {
		return nil, fmt.Errorf("identity profile is required: %w", domain.ErrBadRequest)
	}
	col, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	if col.Record.OwnershipCheckCount >= o.cap {
		return &Outcome{Verified: false, OwnershipCapReached: true},
			fmt.Errorf("limit reached for identity confirmation: %w", domain.ErrCapReached)
	}
	possession := col.Request(domain.StagePossession)
	if possession.Payload.MobileNumber == "" {
		return nil, fmt.Errorf("phone number from possession stage is required: %w", domain.ErrBadRequest)
	}

	newCount := col.Record.OwnershipCheckCount + 1
	if err := o.persist(ctx, col, map[string]interface{}{"ownership_check_count": newCount}); err != nil {
		return nil, err
	}

	profile := input.Profile
	res, err := o.prove.IdentityConfirm(ctx, &prove.ConfirmRequest{
		PhoneNumber:     possession.Payload.MobileNumber,
		FirstName:       profile.FirstName,
		LastName:        profile.LastName,
		DOB:             profile.DOB,
		Last4:           profile.Last4,
		Address:         profile.Address,
		ExtendedAddress: profile.ExtendedAddress,
		City:            profile.City,
		Region:          profile.Region,
		PostalCode:      profile.PostalCode,
	})
	if err != nil {
		return nil, err
	}
	o.archive(ctx, domain.StageOwnership, res)

	if res.Verified {
		err = o.persist(ctx, col, map[string]interface{}{
			"verified": true,
			"state":    domain.StateOwnershipVerified,
		})
		if err != nil {
			return nil, err
		}
		return &Outcome{Verified: true}, nil
	}

	capReached := newCount >= o.cap
	if capReached {
		if err := o.persist(ctx, col, map[string]interface{}{"state": domain.StateLocked}); err != nil {
			return nil, err
		}
	}
	return &Outcome{Verified: false, OwnershipCapReached: capReached}, nil
}

func toIdentityResponse(res *prove.IdentityResult) *domain.IdentityResponse {
	return &domain.IdentityResponse{
		Verified:            res.Verified,
		ManualEntryRequired: res.ManualEntryRequired,
		FirstName:           res.FirstName,
		LastName:            res.LastName,
		DOB:                 res.DOB,
		Last4:               res.Last4,
		Address:             res.Address,
		ExtendedAddress:     res.ExtendedAddress,
		City:                res.City,
		Region:              res.Region,
		PostalCode:          res.PostalCode,
	}
}
