package config // package config loads application configuration from the environment

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration values. Each field is read once
// at startup from environment variables (optionally seeded from a .env
// file) and never changes afterwards.
type Config struct {
	Env        string // application environment ("dev", "test", "prod")
	Port       string // HTTP port to listen on
	LogLevel   string // slog level name
	BcryptCost int    // bcrypt cost for password hashing

	// MetricsPort serves /metrics on its own listener; "off" disables it.
	MetricsPort string
	// TrustedProxies are the reverse proxies whose X-Forwarded-For is
	// believed. Empty means the socket peer is the client.
	TrustedProxies []*net.IPNet

	DB         DBConfig
	Token      TokenConfig
	BruteForce BruteForceConfig
	Throttle   ThrottleConfig
	Redis      RedisConfig
	AMQP       AMQPConfig
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// TokenConfig controls JWT issuance.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AMQPConfig describes the broker used for security events. An empty URL
// disables publishing.
type AMQPConfig struct {
	URL      string
	Queue    string
	AuditLog string // file the audit consumer appends to; empty disables it
}

// IsDev reports whether the application runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "test" }

// ErrMissing is returned by Load when required variables are unset.
var ErrMissing = errors.New("missing required env var")

// Load reads configuration values from the environment. A .env file in
// the working directory (or the file named by ENV_FILE) is loaded first
// when present; variables already set in the environment win.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("METRICS_PORT", "9091")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("JWT_ISSUER", "elimu")
	v.SetDefault("ACCESS_TOKEN_TTL", 15*time.Minute)
	v.SetDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("AMQP_QUEUE", "auth.security")
	v.SetDefault("AUDIT_LOG_PATH", "logs/security.log")
	setBruteForceDefaults(v)
	setThrottleDefaults(v)
	setRedisDefaults(v)
	v.AutomaticEnv()

	var missing []string
	must := func(key string) string {
		s := v.GetString(key)
		if s == "" {
			missing = append(missing, key)
		}
		return s
	}

	proxies, err := parseCIDRs(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:            strings.ToLower(v.GetString("APP_ENV")),
		Port:           v.GetString("APP_PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		MetricsPort:    strings.ToLower(v.GetString("METRICS_PORT")),
		TrustedProxies: proxies,
		DB: DBConfig{
			User: must("DB_USER"),
			Pass: v.GetString("DB_PASS"), // empty allowed
			Host: must("DB_HOST"),
			Port: v.GetString("DB_PORT"),
			Name: must("DB_NAME"),
		},
		Token: TokenConfig{
			Secret:     must("JWT_SECRET"),
			Issuer:     v.GetString("JWT_ISSUER"),
			AccessTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
			RefreshTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		},
		BruteForce: loadBruteForce(v),
		Throttle:   loadThrottle(v),
		Redis:      loadRedis(v),
		AMQP: AMQPConfig{
			URL:      v.GetString("AMQP_URL"),
			Queue:    v.GetString("AMQP_QUEUE"),
			AuditLog: v.GetString("AUDIT_LOG_PATH"),
		},
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	if !c.IsDev() && len(c.Token.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes outside dev")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("invalid BCRYPT_COST %d", c.BcryptCost)
	}
	if c.MetricsPort == c.Port {
		return errors.New("METRICS_PORT must differ from APP_PORT")
	}
	return c.BruteForce.validate()
}

// MetricsEnabled reports whether the metrics listener should run.
func (c Config) MetricsEnabled() bool { return c.MetricsPort != "off" }

// parseCIDRs reads a comma-separated list of CIDR ranges. A bare address
// stands for a single host.
func parseCIDRs(s string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "/") {
			ip := net.ParseIP(part)
			if ip == nil {
				return nil, fmt.Errorf("config: invalid TRUSTED_PROXIES entry %q", part)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(part)
		if err != nil {
			return nil, fmt.Errorf("config: invalid TRUSTED_PROXIES entry %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}
