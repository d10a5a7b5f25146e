package bot

import (
	"fmt"
	"time"

	"github.com/maypok86/otter"
)

// Ledger defaults. Submissions older than the TTL can be claimed again; the
// stored payment record still rejects a second approval.
const (
	DefaultLedgerCapacity = 50_000
	DefaultLedgerTTL      = 30 * 24 * time.Hour
)

// Ledger remembers which administrator claimed a submission first.
type Ledger struct {
	claims otter.Cache[string, int64]
}

// NewLedger builds a bounded ledger. Zero values select the defaults.
func NewLedger(capacity int, ttl time.Duration) (*Ledger, error) {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	claims, err := otter.MustBuilder[string, int64](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("bot: build review ledger: %w", err)
	}
	return &Ledger{claims: claims}, nil
}

// Claim records admin as the reviewer of submission unless someone else
// already holds it.
func (l *Ledger) Claim(submission string, admin int64) (int64, bool) {
	if l.claims.SetIfAbsent(submission, admin) {
		return admin, true
	}
	owner, _ := l.claims.Get(submission)
	return owner, false
}

// Release drops a claim so the submission can be reviewed again.
func (l *Ledger) Release(submission string) {
	l.claims.Delete(submission)
}
