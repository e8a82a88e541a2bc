package ports

import (
	"time"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

// TokenService issues and verifies signed, time-bounded bearer tokens.
// Stateless: verification needs only the signing key.
type TokenService interface {
	// Issue signs claims into a compact token valid for ttl, assigning a
	// fresh token id and issue/expiry timestamps. The returned claims are
	// the completed set that was actually signed.
	Issue(claims domain.SessionClaims, ttl time.Duration) (string, domain.SessionClaims, error)

	// Verify parses and validates a token, returning
	// domain.ErrTokenExpired, domain.ErrTokenMalformed or
	// domain.ErrTokenInvalid on failure. Tokens signed with a different key
	// or algorithm are rejected.
	Verify(token string) (*domain.SessionClaims, error)
}
