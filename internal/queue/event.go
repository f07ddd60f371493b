// Package queue defines security event payloads exchanged over the message
// broker, plus the publisher and the audit consumer.
package queue

import "time"

// Event types.
const (
	EventLockout      = "auth.lockout"
	EventLoginSuccess = "auth.login_succeeded"
	EventLogout       = "auth.logout"
)

// SecurityEvent is published when the auth core observes a security
// relevant transition. It carries enough information for an audit trail
// without querying the primary database.
type SecurityEvent struct {
	Type        string    `json:"type"`
	SchoolCode  string    `json:"school_code,omitempty"`
	SchoolID    uint64    `json:"school_id,omitempty"`
	PrincipalID uint64    `json:"principal_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	ClientIP    string    `json:"client_ip,omitempty"`
	LockedKey   string    `json:"locked_key,omitempty"` // "ip" or "user" for lockouts
	OccurredAt  time.Time `json:"occurred_at"`
}
