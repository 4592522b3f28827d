package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lasprendas/tryon-api/internal/domain"
)

// SessionStore defines the interface for try-on session persistence.
// Version: 1.0
type SessionStore interface {
	// Create saves a new session along with its ordered garment references.
	Create(ctx context.Context, session *domain.TryOnSession) error

	// GetByID retrieves a session (with its garments, in stored order) by ID,
	// scoped to the owner. Tombstoned rows ARE returned; callers decide what
	// a tombstone means for them.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error)

	// SetResult records the composited result URL for a pending session.
	// The write only applies while result_url is NULL, which makes worker
	// retries idempotent: a second call with the result already present is a
	// no-op success, never a revert.
	// Returns ErrSessionNotFound if the session does not exist.
	SetResult(ctx context.Context, id uuid.UUID, resultURL string) error

	// UpdateEnrichment persists the session's metadata and embedding. Both
	// are written in a single statement; they are never set independently.
	// Returns ErrSessionNotFound if the session does not exist.
	UpdateEnrichment(ctx context.Context, session *domain.TryOnSession) error

	// FindUnprocessed retrieves all non-deleted sessions whose metadata has
	// not been populated yet, across all owners. This feeds reconciliation.
	FindUnprocessed(ctx context.Context) ([]*domain.TryOnSession, error)

	// SoftDelete marks the session as deleted without removing the row.
	// Returns ErrSessionNotFound if the session does not exist or is not
	// owned by the caller.
	SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error

	// WithTx returns a new SessionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SessionStore
}
