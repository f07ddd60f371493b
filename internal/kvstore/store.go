// Package kvstore abstracts the shared key-value store behind the attempt
// ledger and the refresh-token blacklist. Production uses Redis; tests and
// single-process development use the in-memory implementation.
package kvstore

import (
	"context"
	"time"
)

// Store is the subset of key-value operations the auth core relies on.
// Every operation must be atomic with respect to concurrent callers and
// visible to subsequent reads as soon as it returns.
type Store interface {
	// Incr increments the counter at key and returns the new value. The
	// ttl is applied only when the increment creates the key, so the
	// counter expires a fixed time after its first increment.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// SetNX stores a flag at key for ttl unless key already exists. It
	// reports whether the flag was set.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
	// TTL returns the remaining lifetime of key, or zero when key is
	// absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Del removes keys. Missing keys are ignored.
	Del(ctx context.Context, keys ...string) error
}
