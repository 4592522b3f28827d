package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lasprendas/tryon-api/internal/domain"
)

// GarmentStore defines the interface for garment data persistence.
// Version: 1.0
type GarmentStore interface {
	// Create saves a new garment to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, garment *domain.Garment) error

	// GetByID retrieves a garment by its unique ID, scoped to the owner.
	// Tombstoned rows ARE returned (direct lookup is the audit read path);
	// callers decide what a tombstone means for them.
	// Returns ErrGarmentNotFound if the garment does not exist.
	GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Garment, error)

	// FindByHash retrieves a non-deleted garment with the given content hash
	// for the owner. Used for idempotent-by-content upload deduplication.
	// Returns ErrGarmentNotFound if no live garment matches.
	FindByHash(ctx context.Context, hash string, ownerID uuid.UUID) (*domain.Garment, error)

	// FindUnprocessed retrieves all non-deleted garments whose metadata has
	// not been populated yet, across all owners. This feeds reconciliation.
	FindUnprocessed(ctx context.Context) ([]*domain.Garment, error)

	// UpdateEnrichment persists the garment's metadata and embedding. Both
	// are written in a single statement; they are never set independently.
	// Returns ErrGarmentNotFound if the garment does not exist.
	UpdateEnrichment(ctx context.Context, garment *domain.Garment) error

	// SoftDelete marks the garment as deleted without removing the row.
	// Returns ErrGarmentNotFound if the garment does not exist or is not
	// owned by the caller.
	SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error

	// WithTx returns a new GarmentStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) GarmentStore
}
