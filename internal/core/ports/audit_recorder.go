package ports

import (
	"context"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

// AuditRecorder appends immutable login-attempt records. Writes are
// best-effort from the caller's point of view: a failed append is surfaced to
// operational logging, never to the login result.
type AuditRecorder interface {
	Record(ctx context.Context, rec *domain.LoginAuditRecord) error

	// ListRecentByAccount returns up to limit records for one account,
	// newest first. A point read for the "recent activity" view, not an
	// analytics query.
	ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]domain.LoginAuditRecord, error)
}
