package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRole signals a role outside {faculty, student}.
	ErrInvalidRole = errors.New("invalid role")
	// ErrEmailInUse signals a registration against an already-taken email.
	ErrEmailInUse = errors.New("email already registered")
	// ErrDuplicateProfileKey signals a colliding faculty id or registration number.
	ErrDuplicateProfileKey = errors.New("profile identifier already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password —
	// identical shape on purpose, so error responses never reveal whether an
	// account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts signals the login throttle tripped for this email.
	ErrTooManyAttempts = errors.New("too many failed login attempts")

	// ErrAccountNotFound signals a point lookup that matched no account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrProfileNotFound signals a profile lookup that matched no record.
	// At the orchestrator boundary this becomes ErrProfileIntegrity.
	ErrProfileNotFound = errors.New("role profile not found")
	// ErrProfileIntegrity signals an account observed without its profile.
	// Atomic creation makes this impossible through this service; seeing it
	// means the store was modified by something else. Operator-alert class.
	ErrProfileIntegrity = errors.New("account has no matching role profile")

	// ErrTokenExpired signals a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenInvalid signals a bad signature or rejected algorithm.
	ErrTokenInvalid = errors.New("session token invalid")
	// ErrTokenMalformed signals a token that cannot be parsed at all.
	ErrTokenMalformed = errors.New("session token malformed")

	// ErrHashingFailure signals the password hashing primitive errored.
	ErrHashingFailure = errors.New("password hashing failed")
	// ErrStoreFailure wraps unclassified persistence errors.
	ErrStoreFailure = errors.New("storage failure")
	// ErrStoreTimeout wraps persistence calls that exceeded their deadline.
	ErrStoreTimeout = errors.New("storage timeout")
)

// ValidationError reports the required registration fields that were absent
// for the chosen role. Caller-fixable; never logged as a failure.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}
