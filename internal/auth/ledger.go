package auth

import (
	"context"
	"strings"
	"time"

	"github.com/eneogroup/elimu-app-backend/internal/kvstore"
)

// Key kinds tracked by the ledger.
const (
	KindIP   = "ip"
	KindUser = "user"
)

// LedgerKey identifies one tracked subject: a client IP or a username
// qualified by its school code.
type LedgerKey struct {
	Kind string
	ID   string
}

// IPKey returns the ledger key of a client IP.
func IPKey(ip string) LedgerKey { return LedgerKey{Kind: KindIP, ID: ip} }

// UserKey returns the ledger key of a username within a school. Both parts
// are case-folded so "JDoe" and "jdoe" share one counter.
func UserKey(schoolCode, username string) LedgerKey {
	return LedgerKey{
		Kind: KindUser,
		ID:   strings.ToLower(strings.TrimSpace(schoolCode)) + "/" + strings.ToLower(strings.TrimSpace(username)),
	}
}

// AttemptLedger stores failure counters and lock flags in the shared
// key-value store.
type AttemptLedger struct {
	kv     kvstore.Store
	prefix string
}

// NewAttemptLedger returns a ledger writing keys under prefix.
func NewAttemptLedger(kv kvstore.Store, prefix string) *AttemptLedger {
	return &AttemptLedger{kv: kv, prefix: prefix}
}

func (l *AttemptLedger) counterKey(k LedgerKey) string {
	return l.prefix + ":attempts:" + k.Kind + ":" + k.ID
}

func (l *AttemptLedger) lockKey(k LedgerKey) string {
	return l.prefix + ":locked:" + k.Kind + ":" + k.ID
}

// Record counts one failure for k. The counter expires window after its
// first failure.
func (l *AttemptLedger) Record(ctx context.Context, k LedgerKey, window time.Duration) (int64, error) {
	return l.kv.Incr(ctx, l.counterKey(k), window)
}

// Lock sets the lock flag of k for d. An existing lock keeps its original
// expiry. It reports whether a new lock was created.
func (l *AttemptLedger) Lock(ctx context.Context, k LedgerKey, d time.Duration) (bool, error) {
	return l.kv.SetNX(ctx, l.lockKey(k), d)
}

// Locked reports whether k is locked and for how much longer.
func (l *AttemptLedger) Locked(ctx context.Context, k LedgerKey) (bool, time.Duration, error) {
	key := l.lockKey(k)
	ok, err := l.kv.Exists(ctx, key)
	if err != nil || !ok {
		return false, 0, err
	}
	ttl, err := l.kv.TTL(ctx, key)
	if err != nil {
		return true, 0, err
	}
	return true, ttl, nil
}

// Reset clears the failure counter of k. Lock flags are left to expire.
func (l *AttemptLedger) Reset(ctx context.Context, k LedgerKey) error {
	return l.kv.Del(ctx, l.counterKey(k))
}
