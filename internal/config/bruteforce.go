package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Brute-force lockout defaults.
const (
	DefaultMaxAttempts   = 5
	DefaultLockDuration  = 300 * time.Second
	DefaultAttemptWindow = 300 * time.Second
)

// BruteForceConfig bounds failed login attempts per client IP and per
// username. Counters use a fixed window that starts at the first failure;
// once a counter reaches MaxAttempts the key is locked for LockDuration.
type BruteForceConfig struct {
	MaxAttempts   int
	AttemptWindow time.Duration
	LockDuration  time.Duration
	Prefix        string // key namespace in the shared store
}

// DefaultBruteForce returns the production lockout settings.
func DefaultBruteForce() BruteForceConfig {
	return BruteForceConfig{
		MaxAttempts:   DefaultMaxAttempts,
		AttemptWindow: DefaultAttemptWindow,
		LockDuration:  DefaultLockDuration,
		Prefix:        "auth",
	}
}

func setBruteForceDefaults(v *viper.Viper) {
	d := DefaultBruteForce()
	v.SetDefault("BRUTE_FORCE_MAX_ATTEMPTS", d.MaxAttempts)
	v.SetDefault("BRUTE_FORCE_WINDOW", d.AttemptWindow)
	v.SetDefault("BRUTE_FORCE_LOCK_DURATION", d.LockDuration)
	v.SetDefault("BRUTE_FORCE_PREFIX", d.Prefix)
}

func loadBruteForce(v *viper.Viper) BruteForceConfig {
	return BruteForceConfig{
		MaxAttempts:   v.GetInt("BRUTE_FORCE_MAX_ATTEMPTS"),
		AttemptWindow: v.GetDuration("BRUTE_FORCE_WINDOW"),
		LockDuration:  v.GetDuration("BRUTE_FORCE_LOCK_DURATION"),
		Prefix:        v.GetString("BRUTE_FORCE_PREFIX"),
	}
}

func (b BruteForceConfig) validate() error {
	if b.MaxAttempts < 1 {
		return errors.New("BRUTE_FORCE_MAX_ATTEMPTS must be at least 1")
	}
	if b.AttemptWindow <= 0 || b.LockDuration <= 0 {
		return errors.New("brute-force window and lock duration must be positive")
	}
	return nil
}
