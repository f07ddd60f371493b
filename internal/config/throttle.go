package config

import (
	"time"

	"github.com/spf13/viper"
)

// ThrottleConfig sizes the token bucket in front of the public auth
// endpoints. It is independent of the brute-force lockout: the bucket
// bounds request rate per client IP and route, whatever the outcome.
type ThrottleConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

func setThrottleDefaults(v *viper.Viper) {
	v.SetDefault("THROTTLE_ENABLED", true)
	v.SetDefault("THROTTLE_CAPACITY", 30)
	v.SetDefault("THROTTLE_REFILL_TOKENS", 1)
	v.SetDefault("THROTTLE_REFILL_INTERVAL", 2*time.Second)
	v.SetDefault("THROTTLE_TTL", 10*time.Minute)
	v.SetDefault("THROTTLE_PREFIX", "rl")
}

func loadThrottle(v *viper.Viper) ThrottleConfig {
	t := ThrottleConfig{
		Enabled:        v.GetBool("THROTTLE_ENABLED"),
		Capacity:       v.GetInt("THROTTLE_CAPACITY"),
		RefillTokens:   v.GetInt("THROTTLE_REFILL_TOKENS"),
		RefillInterval: v.GetDuration("THROTTLE_REFILL_INTERVAL"),
		TTL:            v.GetDuration("THROTTLE_TTL"),
		Prefix:         v.GetString("THROTTLE_PREFIX"),
	}
	if t.Capacity < 1 {
		t.Capacity = 1
	}
	if t.RefillTokens < 1 {
		t.RefillTokens = 1
	}
	if t.RefillInterval <= 0 {
		t.RefillInterval = time.Second
	}
	if minTTL := 5 * t.RefillInterval; t.TTL < minTTL {
		t.TTL = minTTL
	}
	return t
}
