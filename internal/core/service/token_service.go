package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

// DefaultTokenTTL applies when the caller passes a non-positive ttl.
const DefaultTokenTTL = 7 * 24 * time.Hour

// sessionTokenClaims is the wire form of domain.SessionClaims. Account id
// maps to the registered "sub" claim, token id to "jti".
type sessionTokenClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens with a single symmetric key
// (HS256). The key is immutable after construction; rotating it invalidates
// every outstanding token.
type TokenService struct {
	secret []byte
}

// NewTokenService builds a TokenService around the process-wide signing key.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue signs claims into a compact HS256 token valid for ttl, assigning a
// fresh token id and issue/expiry timestamps.
func (s *TokenService) Issue(claims domain.SessionClaims, ttl time.Duration) (string, domain.SessionClaims, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now().UTC()
	claims.TokenID = uuid.NewString()
	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(ttl)

	wire := sessionTokenClaims{
		Role:  string(claims.Role),
		Email: claims.Email,
		Name:  claims.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.AccountID,
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(s.secret)
	if err != nil {
		return "", domain.SessionClaims{}, err
	}
	return token, claims, nil
}

// Verify parses and validates a token, mapping failures onto the domain
// token-error taxonomy. Any algorithm other than HS256 is rejected outright.
func (s *TokenService) Verify(token string) (*domain.SessionClaims, error) {
	wire := &sessionTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, wire, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrTokenMalformed
		default:
			return nil, domain.ErrTokenInvalid
		}
	}
	if !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}

	role := domain.Role(wire.Role)
	if wire.Subject == "" || !role.Valid() {
		return nil, domain.ErrTokenInvalid
	}

	claims := &domain.SessionClaims{
		AccountID:   wire.Subject,
		Role:        role,
		Email:       wire.Email,
		DisplayName: wire.Name,
		TokenID:     wire.ID,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time
	}
	return claims, nil
}
