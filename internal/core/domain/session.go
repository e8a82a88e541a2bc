package domain

import "time"

// SessionClaims is the payload signed into a bearer token. Never persisted;
// immutable once issued — the signature binds all fields together.
type SessionClaims struct {
	AccountID   string
	Role        Role
	Email       string
	DisplayName string
	// TokenID uniquely identifies one issued token (traceability, not
	// revocation — this core keeps no denylist).
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
