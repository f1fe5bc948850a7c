package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New mints an id for a prefill record. ULIDs sort lexicographically by
// creation time, so a raw table scan lists records in rough creation order,
// which is what the audit trail wants.
func New() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}
