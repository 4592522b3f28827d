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

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend. Garment references
// live in the try_on_session_garments join table; the position column
// preserves submission order.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx implements store.SessionStore.WithTx
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.SessionStore.Create
// The session row and its ordered garment links are inserted together, so
// Create should run inside a transaction (via WithTx) when atomicity with
// other writes matters.
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.TryOnSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		INSERT INTO try_on_sessions (id, owner_id, stance, mannequin_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.OwnerID,
		string(session.Stance),
		session.MannequinURL,
		session.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()),
			slog.String("owner_id", session.OwnerID.String()))
		return MapError(err)
	}

	linkQuery := `
		INSERT INTO try_on_session_garments (session_id, garment_id, position)
		VALUES ($1, $2, $3)
	`
	for i, garment := range session.Garments {
		if _, err := s.db.ExecContext(ctx, linkQuery, session.ID, garment.ID, i); err != nil {
			log.Error("failed to link garment to session",
				slog.String("error", err.Error()),
				slog.String("session_id", session.ID.String()),
				slog.String("garment_id", garment.ID.String()))
			return MapError(err)
		}
	}

	log.Info("session created successfully",
		slog.String("session_id", session.ID.String()),
		slog.String("owner_id", session.OwnerID.String()),
		slog.Int("garment_count", len(session.Garments)))
	return nil
}

// GetByID implements store.SessionStore.GetByID
// Tombstoned rows are returned; this is the audit read path.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error) {
	query := `
		SELECT id, owner_id, stance, mannequin_url, result_url, metadata, embedding, created_at, deleted_at
		FROM try_on_sessions
		WHERE id = $1 AND owner_id = $2
	`
	session, err := scanSessionRow(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, err
	}

	garments, err := s.loadGarments(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	session.Garments = garments

	return session, nil
}

// SetResult implements store.SessionStore.SetResult
// The guard on result_url IS NULL makes the Pending -> Completed transition
// one-way and retry-safe: a retried job observes the row already completed
// and treats the write as a no-op success.
func (s *PostgresSessionStore) SetResult(ctx context.Context, id uuid.UUID, resultURL string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE try_on_sessions
		SET result_url = $1
		WHERE id = $2 AND result_url IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, resultURL, id)
	if err != nil {
		log.Error("failed to set session result",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Either the session is gone or the result was already written.
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM try_on_sessions WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrSessionNotFound
		}
		log.Warn("session result already set, skipping",
			slog.String("session_id", id.String()))
		return nil
	}

	log.Info("session result persisted",
		slog.String("session_id", id.String()))
	return nil
}

// UpdateEnrichment implements store.SessionStore.UpdateEnrichment
func (s *PostgresSessionStore) UpdateEnrichment(ctx context.Context, session *domain.TryOnSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	metadata, err := marshalMetadata(session.Metadata)
	if err != nil {
		return err
	}
	embedding, err := marshalEmbedding(session.Embedding)
	if err != nil {
		return err
	}

	query := `
		UPDATE try_on_sessions
		SET metadata = $1, embedding = $2
		WHERE id = $3 AND owner_id = $4
	`
	result, err := s.db.ExecContext(ctx, query, metadata, embedding, session.ID, session.OwnerID)
	if err != nil {
		log.Error("failed to update session enrichment",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "try-on session"); err != nil {
		return err
	}

	log.Info("session enrichment persisted",
		slog.String("session_id", session.ID.String()))
	return nil
}

// FindUnprocessed implements store.SessionStore.FindUnprocessed
// Garment references are not loaded here; reconciliation only needs ids and
// owners to enqueue analyze jobs.
func (s *PostgresSessionStore) FindUnprocessed(ctx context.Context) ([]*domain.TryOnSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, stance, mannequin_url, result_url, metadata, embedding, created_at, deleted_at
		FROM try_on_sessions
		WHERE metadata IS NULL AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query unprocessed sessions",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.TryOnSession
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return sessions, nil
}

// SoftDelete implements store.SessionStore.SoftDelete
func (s *PostgresSessionStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE try_on_sessions
		SET deleted_at = $1
		WHERE id = $2 AND owner_id = $3 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id, ownerID)
	if err != nil {
		log.Error("failed to soft-delete session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		if _, err := s.GetByID(ctx, id, ownerID); err != nil {
			return err
		}
		return nil
	}

	log.Info("session soft-deleted", slog.String("session_id", id.String()))
	return nil
}

// loadGarments fetches a session's garments in stored order.
func (s *PostgresSessionStore) loadGarments(ctx context.Context, sessionID uuid.UUID) ([]*domain.Garment, error) {
	query := `
		SELECT g.id, g.owner_id, g.original_url, g.category, g.hash, g.metadata, g.embedding, g.created_at, g.deleted_at
		FROM garments g
		JOIN try_on_session_garments sg ON sg.garment_id = g.id
		WHERE sg.session_id = $1
		ORDER BY sg.position ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
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

func scanSessionRow(row rowScanner) (*domain.TryOnSession, error) {
	var session domain.TryOnSession
	var stance string
	var resultURL sql.NullString
	var metadataRaw, embeddingRaw []byte
	var deletedAt sql.NullTime

	err := row.Scan(
		&session.ID,
		&session.OwnerID,
		&stance,
		&session.MannequinURL,
		&resultURL,
		&metadataRaw,
		&embeddingRaw,
		&session.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Stance = domain.Stance(stance)
	if resultURL.Valid {
		u := resultURL.String
		session.ResultURL = &u
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		session.DeletedAt = &t
	}

	if session.Metadata, err = unmarshalMetadata(metadataRaw); err != nil {
		return nil, err
	}
	if session.Embedding, err = unmarshalEmbedding(embeddingRaw); err != nil {
		return nil, err
	}

	return &session, nil
}
