package verification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/payfone/prefill-verify/internal/domain"
)

// Orchestrator is the shared two-phase stage contract. Execute performs the
// stage's primary provider call and persists the outcome; Finalize runs the
// confirmation round-trip for stages that have one. Single-phase stages fail
// Finalize with domain.ErrUnsupported.
type Orchestrator interface {
	Execute(ctx context.Context) (*Outcome, error)
	Finalize(ctx context.Context, input FinalizeInput) (*Outcome, error)
}

// Outcome is the result of a stage invocation.
type Outcome struct {
	Verified            bool
	ManualEntryRequired bool
	OwnershipCapReached bool
	Identity            *domain.IdentityResponse
}

// FinalizeInput carries the confirmation payload for the stage that needs it:
// the link fingerprint for possession, the full PII profile for ownership.
type FinalizeInput struct {
	Fingerprint string
	Profile     *domain.IdentityProfile
}

// stageBase is the shared lifecycle embedded by every orchestrator: it loads
// the colated record before a stage method runs and persists record mutations
// under the optimistic state-counter check.
type stageBase struct {
	records   RecordStore
	snapshots SnapshotStore
	audit     AuditArchiver
	recordID  string
}

func newStageBase(d StageDeps, recordID string) stageBase {
	return stageBase{
		records:   d.Records,
		snapshots: d.Snapshots,
		audit:     d.Audit,
		recordID:  recordID,
	}
}

// load fetches the record plus its current request/response snapshots.
// Fails with domain.ErrNotFound when the identifier does not resolve.
func (b *stageBase) load(ctx context.Context) (*domain.ColatedRecord, error) {
	rec, err := b.records.Get(ctx, b.recordID)
	if err != nil {
		return nil, err
	}
	requests, err := b.snapshots.ListRequests(ctx, b.recordID)
	if err != nil {
		return nil, err
	}
	responses, err := b.snapshots.ListResponses(ctx, b.recordID)
	if err != nil {
		return nil, err
	}
	return &domain.ColatedRecord{Record: rec, Requests: requests, Responses: responses}, nil
}

// persist applies record updates conditioned on the counter value read at
// load time. Any state change is validated against the transition graph
// first; on success the in-memory counter advances so a stage may persist
// more than once per invocation.
func (b *stageBase) persist(ctx context.Context, col *domain.ColatedRecord, updates map[string]interface{}) error {
	if st, ok := updates["state"]; ok {
		to := st.(domain.AuthState)
		if !col.Record.State.CanTransition(to) {
			return fmt.Errorf("illegal transition %s -> %s: %w", col.Record.State, to, domain.ErrConflict)
		}
		updates["state"] = string(to)
	}
	if err := b.records.UpdateWithCounter(ctx, col.Record.RecordID, col.Record.StateCounter, updates); err != nil {
		return err
	}
	col.Record.StateCounter++
	if st, ok := updates["state"]; ok {
		col.Record.State = domain.AuthState(st.(string))
	}
	return nil
}

// archive stores a raw provider payload when an audit store is configured.
// Archive failures never fail the stage.
func (b *stageBase) archive(ctx context.Context, stage domain.Stage, payload interface{}) {
	if b.audit == nil {
		return
	}
	if err := b.audit.Archive(ctx, b.recordID, stage, payload); err != nil {
		slog.Warn("audit archive failed", "record_id", b.recordID, "stage", stage, "err", err)
	}
}

// singlePhase is embedded by stages without a confirmation round-trip.
type singlePhase struct{}

func (singlePhase) Finalize(_ context.Context, _ FinalizeInput) (*Outcome, error) {
	return nil, fmt.Errorf("finalize not supported for this stage: %w", domain.ErrUnsupported)
}
