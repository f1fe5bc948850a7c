package verification

import (
	"context"
	"fmt"

	"github.com/payfone/prefill-verify/internal/domain"
)

// ReputationOrchestrator fetches the phone/IP trust score and persists it as
// a response snapshot. It reports success of the provider call itself; it
// does not gate on the score's magnitude — the ownership stage reads the
// snapshot and applies the eligibility gate.
type ReputationOrchestrator struct {
	stageBase
	singlePhase
	prove ProveClient
}

func NewReputationOrchestrator(d StageDeps, recordID string) *ReputationOrchestrator {
	return &ReputationOrchestrator{
		stageBase: newStageBase(d, recordID),
		prove:     d.Prove,
	}
}

func (r *ReputationOrchestrator) Execute(ctx context.Context) (*Outcome, error) {
	col, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	req := col.Request(domain.StagePossession)
	if req.Payload.MobileNumber == "" {
		return nil, fmt.Errorf("phone number is required: %w", domain.ErrBadRequest)
	}

	res, err := r.prove.TrustScore(ctx, req.Payload.MobileNumber, req.Payload.SourceIP)
	if err != nil {
		return nil, err
	}
	r.archive(ctx, domain.StageReputation, res)

	err = r.snapshots.PutResponse(ctx, &domain.ResponseSnapshot{
		RecordID:    r.recordID,
		Stage:       domain.StageReputation,
		ParentState: col.Record.State,
		Payload:     domain.ResponsePayload{TrustScore: res.TrustScore},
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Verified: true}, nil
}
