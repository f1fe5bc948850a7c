package http

import (
	"github.com/payfone/prefill-verify/internal/application/verification"
	"github.com/payfone/prefill-verify/internal/infrastructure/dynamo"
	jwtinfra "github.com/payfone/prefill-verify/internal/infrastructure/jwt"
	"github.com/payfone/prefill-verify/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	RecordRepo   *dynamo.RecordRepo
	SnapshotRepo *dynamo.SnapshotRepo
	ProveClient  verification.ProveClient
	SMSSender    sns.SMSSender
	// AuditStore may be nil when no audit bucket is configured.
	AuditStore  verification.AuditArchiver
	JWTProvider *jwtinfra.Provider
}
