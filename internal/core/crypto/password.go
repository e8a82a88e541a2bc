// Package crypto provides the one-way credential hasher. bcrypt output is
// self-describing (algorithm, cost and salt are embedded in the hash), so
// verification needs no side-channel state.
package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords with a fixed work factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the given bcrypt cost. Costs
// outside bcrypt's supported range fall back to the library default.
func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PasswordHasher{cost: cost}
}

// Hash produces a salted one-way digest of plaintext.
func (h PasswordHasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrHashingFailure, err)
	}
	return string(out), nil
}

// Verify reports whether plaintext matches the stored hash. A structurally
// invalid stored hash yields false, not an error — callers treat it as a
// wrong password.
func (h PasswordHasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
