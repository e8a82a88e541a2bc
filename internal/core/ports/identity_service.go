package ports

import (
	"context"
	"time"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

// RegisterInput carries everything needed to create an account with its role
// profile. Exactly one of Faculty/Student must be set, matching Role.
type RegisterInput struct {
	Role      domain.Role
	FirstName string
	LastName  string
	Email     string
	Password  string

	Faculty *domain.FacultyProfile
	Student *domain.StudentProfile

	Client domain.ClientContext
}

// AuthResult bundles the issued token with the authenticated identity.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  domain.Identity
}

// IdentityService is the orchestrator: the only component that applies
// business rules and translates low-level errors into the public taxonomy.
type IdentityService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string, client domain.ClientContext) (*AuthResult, error)

	// ResolveCurrentIdentity maps a bearer token to the current identity.
	// (nil, nil) means anonymous — token errors are downgraded, never
	// propagated. A token referencing a since-deleted account returns
	// (nil, domain.ErrAccountNotFound); a present account with a missing
	// profile returns domain.ErrProfileIntegrity.
	ResolveCurrentIdentity(ctx context.Context, token string) (*domain.Identity, error)

	// RecentLogins returns the caller's own audit trail, newest first.
	RecentLogins(ctx context.Context, accountID string, limit int) ([]domain.LoginAuditRecord, error)
}

// LoginThrottle limits failed login attempts per email. Optional: a nil
// throttle disables limiting.
type LoginThrottle interface {
	// Allow reports whether another attempt for email may proceed.
	Allow(ctx context.Context, email string) (bool, error)
	// RecordFailure counts one failed attempt against email.
	RecordFailure(ctx context.Context, email string) error
	// Reset clears the failure count after a successful login.
	Reset(ctx context.Context, email string) error
}
