package verification

import (
	"context"
	"time"

	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/infrastructure/prove"
	"github.com/payfone/prefill-verify/internal/infrastructure/sns"
)

// RecordStore is the minimal interface the stages require from the record table.
type RecordStore interface {
	FindOrCreate(ctx context.Context, userID, sessionID string, isMobile bool, callbackURL string) (*domain.PrefillRecord, error)
	Get(ctx context.Context, recordID string) (*domain.PrefillRecord, error)
	// UpdateWithCounter conditions the write on the previously-read state
	// counter; a superseded counter fails with domain.ErrConflict.
	UpdateWithCounter(ctx context.Context, recordID string, expectedCounter int64, updates map[string]interface{}) error
}

// SnapshotStore is the minimal interface the stages require from the snapshot tables.
type SnapshotStore interface {
	PutRequest(ctx context.Context, s *domain.RequestSnapshot) error
	GetRequest(ctx context.Context, recordID string, stage domain.Stage) (*domain.RequestSnapshot, error)
	ListRequests(ctx context.Context, recordID string) (map[domain.Stage]*domain.RequestSnapshot, error)
	PutResponse(ctx context.Context, s *domain.ResponseSnapshot) error
	GetResponse(ctx context.Context, recordID string, stage domain.Stage) (*domain.ResponseSnapshot, error)
	ListResponses(ctx context.Context, recordID string) (map[domain.Stage]*domain.ResponseSnapshot, error)
}

// ProveClient is the narrow client surface the stages use to reach the
// verification provider.
type ProveClient interface {
	SendInstantLink(ctx context.Context, phoneNumber, sourceIP, finalTargetURL string) (*prove.InstantLink, error)
	GetInstantLinkResult(ctx context.Context, fingerprint string) (*prove.InstantLinkResult, error)
	TrustScore(ctx context.Context, phoneNumber, sourceIP string) (*prove.TrustResult, error)
	Identity(ctx context.Context, phoneNumber, dob, last4 string) (*prove.IdentityResult, error)
	IdentityConfirm(ctx context.Context, req *prove.ConfirmRequest) (*prove.ConfirmResult, error)
}

// TokenSigner mints session tokens scoped to one record.
type TokenSigner interface {
	Sign(userID, sessionID, recordID string, isMobile bool) (string, error)
}

// AuditArchiver stores raw provider payloads for the audit trail. May be nil.
type AuditArchiver interface {
	Archive(ctx context.Context, recordID string, stage domain.Stage, payload interface{}) error
}

// Caps holds the configured attempt limits and gates for the flow.
type Caps struct {
	SMSResend         int
	SMSResendInterval time.Duration
	OwnershipCheck    int
}

// StageDeps bundles everything a stage orchestrator needs.
type StageDeps struct {
	Records        RecordStore
	Snapshots      SnapshotStore
	Prove          ProveClient
	SMS            sns.SMSSender
	Audit          AuditArchiver
	Caps           Caps
	FinalTargetURL string
	Now            func() time.Time
}

func (d StageDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}
