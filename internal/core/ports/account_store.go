package ports

import (
	"context"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

// AccountStore defines the persistence interface for accounts and their role
// profiles. Lookups return domain.ErrAccountNotFound /
// domain.ErrProfileNotFound when no record matches.
type AccountStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, id string) (*domain.Account, error)
	FindProfile(ctx context.Context, accountID string, role domain.Role) (domain.RoleProfile, error)

	// CreateAccountWithProfile durably writes both records or neither; no
	// partial state is ever observable by a concurrent reader. Returns
	// domain.ErrEmailInUse or domain.ErrDuplicateProfileKey on unique
	// constraint collisions.
	CreateAccountWithProfile(ctx context.Context, account *domain.Account, profile domain.RoleProfile) (*domain.Account, error)
}
