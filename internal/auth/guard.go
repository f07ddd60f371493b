package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eneogroup/elimu-app-backend/internal/config"
	"github.com/eneogroup/elimu-app-backend/internal/metrics"
	"github.com/eneogroup/elimu-app-backend/internal/queue"
)

// BruteForceGuard decides whether a login attempt may proceed and records
// failures. Each client IP and each username is tracked independently:
// a key is locked for LockDuration once MaxAttempts failures accumulate
// within AttemptWindow of the first one.
//
// Store errors never block a login: the guard logs them and lets the
// attempt through.
type BruteForceGuard struct {
	ledger *AttemptLedger
	cfg    config.BruteForceConfig
	events queue.Publisher
	log    *slog.Logger
	now    func() time.Time
}

// NewBruteForceGuard returns a guard over ledger.
func NewBruteForceGuard(ledger *AttemptLedger, cfg config.BruteForceConfig, events queue.Publisher, logger *slog.Logger) *BruteForceGuard {
	if events == nil {
		events = queue.Discard{}
	}
	return &BruteForceGuard{ledger: ledger, cfg: cfg, events: events, log: logger, now: time.Now}
}

func keysFor(ip, schoolCode, username string) []LedgerKey {
	keys := make([]LedgerKey, 0, 2)
	if ip != "" {
		keys = append(keys, IPKey(ip))
	}
	return append(keys, UserKey(schoolCode, username))
}

// Check returns a *RateLimitError when either the IP or the username is
// locked. The retry delay is the longest remaining lock.
func (g *BruteForceGuard) Check(ctx context.Context, ip, schoolCode, username string) error {
	var retry time.Duration
	locked := false
	for _, k := range keysFor(ip, schoolCode, username) {
		ok, ttl, err := g.ledger.Locked(ctx, k)
		if err != nil {
			g.log.WarnContext(ctx, "attempt ledger unavailable", "kind", k.Kind, "error", err)
			continue
		}
		if !ok {
			continue
		}
		locked = true
		if ttl <= 0 {
			// Lock expiring right now; ask for one more second.
			ttl = time.Second
		}
		if ttl > retry {
			retry = ttl
		}
	}
	if locked {
		return &RateLimitError{RetryAfter: retry}
	}
	return nil
}

// Fail records one failed attempt against both keys and locks every key
// whose counter reached MaxAttempts.
func (g *BruteForceGuard) Fail(ctx context.Context, ip, schoolCode, username string) error {
	var errs []error
	for _, k := range keysFor(ip, schoolCode, username) {
		n, err := g.ledger.Record(ctx, k, g.cfg.AttemptWindow)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if n < int64(g.cfg.MaxAttempts) {
			continue
		}
		created, err := g.ledger.Lock(ctx, k, g.cfg.LockDuration)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created {
			g.lockedOut(ctx, k, ip, schoolCode, username)
		}
	}
	return errors.Join(errs...)
}

// Succeed clears the username counter after a successful login. The IP
// counter is left untouched.
func (g *BruteForceGuard) Succeed(ctx context.Context, schoolCode, username string) error {
	return g.ledger.Reset(ctx, UserKey(schoolCode, username))
}

func (g *BruteForceGuard) lockedOut(ctx context.Context, k LedgerKey, ip, schoolCode, username string) {
	metrics.LockoutsTotal.WithLabelValues(k.Kind).Inc()
	g.log.WarnContext(ctx, "login locked",
		"kind", k.Kind, "school_code", schoolCode, "username", username, "ip", ip,
		"duration", g.cfg.LockDuration)
	_ = g.events.Publish(ctx, queue.SecurityEvent{
		Type:       queue.EventLockout,
		SchoolCode: schoolCode,
		Username:   username,
		ClientIP:   ip,
		LockedKey:  k.Kind,
		OccurredAt: g.now().UTC(),
	})
}
