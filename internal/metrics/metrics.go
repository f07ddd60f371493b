// Package metrics holds the Prometheus collectors of the auth core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes.
const (
	OutcomeSuccess            = "success"
	OutcomeRateLimited        = "rate_limited"
	OutcomeTenantNotFound     = "tenant_not_found"
	OutcomePrincipalNotFound  = "principal_not_found"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

var (
	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimu_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"outcome"},
	)

	// LockoutsTotal counts keys that entered the locked state, by key kind (ip, user).
	LockoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimu_bruteforce_lockouts_total",
			Help: "Brute-force lockouts",
		},
		[]string{"kind"},
	)

	// TokenOperationsTotal counts token lifecycle operations by operation and result.
	TokenOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimu_token_operations_total",
			Help: "Token operations",
		},
		[]string{"op", "result"},
	)

	// ForbiddenTotal counts cross-tenant and capability denials.
	ForbiddenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimu_authz_forbidden_total",
			Help: "Authorization denials",
		},
		[]string{"reason"},
	)

	// ConsistencyViolationsTotal counts enrollment and evaluation writes
	// rejected by the consistency checks.
	ConsistencyViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimu_consistency_violations_total",
			Help: "Rejected enrollment/evaluation writes",
		},
		[]string{"violation"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elimu_http_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		LoginAttemptsTotal,
		LockoutsTotal,
		TokenOperationsTotal,
		ForbiddenTotal,
		ConsistencyViolationsTotal,
		RequestDuration,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
