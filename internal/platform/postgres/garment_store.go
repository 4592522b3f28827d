package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/platform/logger"
	"github.com/lasprendas/tryon-api/internal/store"
)

// PostgresGarmentStore implements the store.GarmentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGarmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGarmentStore creates a new PostgreSQL implementation of the GarmentStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresGarmentStore(db store.DBTX, logger *slog.Logger) *PostgresGarmentStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGarmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "garment_store")),
	}
}

// Ensure PostgresGarmentStore implements store.GarmentStore interface
var _ store.GarmentStore = (*PostgresGarmentStore)(nil)

// WithTx implements store.GarmentStore.WithTx
func (s *PostgresGarmentStore) WithTx(tx *sql.Tx) store.GarmentStore {
	return &PostgresGarmentStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.GarmentStore.Create
// It saves a new garment to the database, handling domain validation.
func (s *PostgresGarmentStore) Create(ctx context.Context, garment *domain.Garment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := garment.Validate(); err != nil {
		log.Warn("garment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("garment_id", garment.ID.String()))
		return err
	}

	query := `
		INSERT INTO garments (id, owner_id, original_url, category, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		garment.ID,
		garment.OwnerID,
		garment.OriginalURL,
		garment.Category,
		nullString(garment.Hash),
		garment.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create garment",
			slog.String("error", err.Error()),
			slog.String("garment_id", garment.ID.String()),
			slog.String("owner_id", garment.OwnerID.String()))
		return MapError(err)
	}

	log.Info("garment created successfully",
		slog.String("garment_id", garment.ID.String()),
		slog.String("owner_id", garment.OwnerID.String()))
	return nil
}

// GetByID implements store.GarmentStore.GetByID
// Tombstoned rows are returned; this is the audit read path.
// Returns store.ErrGarmentNotFound if the garment does not exist.
func (s *PostgresGarmentStore) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Garment, error) {
	query := `
		SELECT id, owner_id, original_url, category, hash, metadata, embedding, created_at, deleted_at
		FROM garments
		WHERE id = $1 AND owner_id = $2
	`
	return s.scanGarment(ctx, s.db.QueryRowContext(ctx, query, id, ownerID))
}

// FindByHash implements store.GarmentStore.FindByHash
// Only non-deleted rows participate in hash deduplication.
func (s *PostgresGarmentStore) FindByHash(ctx context.Context, hash string, ownerID uuid.UUID) (*domain.Garment, error) {
	query := `
		SELECT id, owner_id, original_url, category, hash, metadata, embedding, created_at, deleted_at
		FROM garments
		WHERE hash = $1 AND owner_id = $2 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`
	return s.scanGarment(ctx, s.db.QueryRowContext(ctx, query, hash, ownerID))
}

// FindUnprocessed implements store.GarmentStore.FindUnprocessed
// It returns all live garments still waiting for enrichment.
func (s *PostgresGarmentStore) FindUnprocessed(ctx context.Context) ([]*domain.Garment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, original_url, category, hash, metadata, embedding, created_at, deleted_at
		FROM garments
		WHERE metadata IS NULL AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query unprocessed garments",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var garments []*domain.Garment
	for rows.Next() {
		garment, err := scanGarmentRow(rows)
		if err != nil {
			return nil, err
		}
		garments = append(garments, garment)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return garments, nil
}

// UpdateEnrichment implements store.GarmentStore.UpdateEnrichment
// Metadata and embedding are written in a single statement so they can never
// diverge.
func (s *PostgresGarmentStore) UpdateEnrichment(ctx context.Context, garment *domain.Garment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	metadata, err := marshalMetadata(garment.Metadata)
	if err != nil {
		return err
	}
	embedding, err := marshalEmbedding(garment.Embedding)
	if err != nil {
		return err
	}

	query := `
		UPDATE garments
		SET metadata = $1, embedding = $2
		WHERE id = $3 AND owner_id = $4
	`
	result, err := s.db.ExecContext(ctx, query, metadata, embedding, garment.ID, garment.OwnerID)
	if err != nil {
		log.Error("failed to update garment enrichment",
			slog.String("error", err.Error()),
			slog.String("garment_id", garment.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "garment"); err != nil {
		return err
	}

	log.Info("garment enrichment persisted",
		slog.String("garment_id", garment.ID.String()))
	return nil
}

// SoftDelete implements store.GarmentStore.SoftDelete
// The row is tombstoned, never removed. Re-deleting a tombstoned garment is
// a no-op.
func (s *PostgresGarmentStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE garments
		SET deleted_at = $1
		WHERE id = $2 AND owner_id = $3 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id, ownerID)
	if err != nil {
		log.Error("failed to soft-delete garment",
			slog.String("error", err.Error()),
			slog.String("garment_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Either missing or already tombstoned; distinguish for the caller.
		if _, err := s.GetByID(ctx, id, ownerID); err != nil {
			return err
		}
		return nil
	}

	log.Info("garment soft-deleted", slog.String("garment_id", id.String()))
	return nil
}

// scanGarment scans a single-row query result into a domain Garment.
func (s *PostgresGarmentStore) scanGarment(ctx context.Context, row *sql.Row) (*domain.Garment, error) {
	garment, err := scanGarmentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGarmentNotFound
		}
		return nil, err
	}
	return garment, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGarmentRow(row rowScanner) (*domain.Garment, error) {
	var garment domain.Garment
	var hash sql.NullString
	var metadataRaw, embeddingRaw []byte
	var deletedAt sql.NullTime

	err := row.Scan(
		&garment.ID,
		&garment.OwnerID,
		&garment.OriginalURL,
		&garment.Category,
		&hash,
		&metadataRaw,
		&embeddingRaw,
		&garment.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	garment.Hash = hash.String
	if deletedAt.Valid {
		t := deletedAt.Time
		garment.DeletedAt = &t
	}

	if garment.Metadata, err = unmarshalMetadata(metadataRaw); err != nil {
		return nil, err
	}
	if garment.Embedding, err = unmarshalEmbedding(embeddingRaw); err != nil {
		return nil, err
	}

	return &garment, nil
}

// nullString maps "" to SQL NULL so the partial unique index on
// (hash, owner_id) never matches hashless uploads.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
