package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/events"
	"github.com/lasprendas/tryon-api/internal/storage"
	"github.com/lasprendas/tryon-api/internal/store"
	"github.com/lasprendas/tryon-api/internal/task"
)

// TxRunner executes a function within a database transaction boundary.
// Production wiring uses DBTxRunner over the shared *sql.DB; tests
// substitute a pass-through.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn store.TxFn) error
}

// DBTxRunner runs transactions on a shared database handle.
type DBTxRunner struct {
	db *sql.DB
}

// NewDBTxRunner creates a TxRunner over the given database.
func NewDBTxRunner(db *sql.DB) *DBTxRunner {
	return &DBTxRunner{db: db}
}

// RunInTransaction implements TxRunner.
func (r *DBTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	return store.RunInTransaction(ctx, r.db, fn)
}

// UploadedGarment references one freshly uploaded image by storage key,
// optionally with a client-supplied content hash for deduplication.
type UploadedGarment struct {
	Key  string
	Hash string
}

// SubmitRequest carries all inputs of one try-on submission.
type SubmitRequest struct {
	OwnerID            uuid.UUID
	Uploads            []UploadedGarment
	Category           string
	ExistingGarmentIDs []uuid.UUID
	Stance             string
}

// SubmitResult is the synchronous answer to a submission. The visual result
// is not available yet; the session starts Pending.
type SubmitResult struct {
	SessionID   uuid.UUID
	NewGarments []*domain.Garment
}

// TryOnService orchestrates try-on submissions: admission, garment
// persistence and dedup, session creation and job enqueueing.
type TryOnService interface {
	// Submit runs the full submission path and returns the new session's ID
	// along with the garments persisted by this call.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// GetSession retrieves a session with its garments, scoped to the owner.
	GetSession(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error)
}

// tryOnServiceImpl implements the TryOnService interface
type tryOnServiceImpl struct {
	tx        TxRunner
	garments  store.GarmentStore
	sessions  store.SessionStore
	objects   storage.ObjectStore
	admission *AdmissionController
	emitter   events.EventEmitter
	logger    *slog.Logger
}

// NewTryOnService creates a new TryOnService.
// It returns an error if any of the required dependencies are nil.
func NewTryOnService(
	tx TxRunner,
	garments store.GarmentStore,
	sessions store.SessionStore,
	objects storage.ObjectStore,
	admission *AdmissionController,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TryOnService, error) {
	if tx == nil {
		return nil, &TryOnServiceError{Operation: "create_service", Message: "tx runner cannot be nil"}
	}
	if garments == nil {
		return nil, &TryOnServiceError{Operation: "create_service", Message: "garment store cannot be nil"}
	}
	if sessions == nil {
		return nil, &TryOnServiceError{Operation: "create_service", Message: "session store cannot be nil"}
	}
	if objects == nil {
		return nil, &TryOnServiceError{Operation: "create_service", Message: "object store cannot be nil"}
	}
	if admission == nil {
		return nil, &TryOnServiceError{Operation: "create_service", Message: "admission controller cannot be nil"}
	}
	if emitter == nil {
		return nil, &TryOnServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &tryOnServiceImpl{
		tx:        tx,
		garments:  garments,
		sessions:  sessions,
		objects:   objects,
		admission: admission,
		emitter:   emitter,
		logger:    logger.With("component", "tryon_service"),
	}, nil
}

// Submit implements TryOnService.Submit.
// Admission runs before any write, so a rejected request leaves no orphaned
// rows. Garment persistence, dedup and session creation happen in one
// transaction; the processing job is enqueued only after the commit.
func (s *tryOnServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	// 1. Admission control, strictly before any persistence.
	if err := s.admission.Admit(ctx); err != nil {
		return nil, NewTryOnServiceError("submit", "admission check failed", err)
	}

	stance := domain.ParseStance(req.Stance)
	mannequinURL := s.objects.URL(stance.AnchorKey())

	var session *domain.TryOnSession
	var newGarments []*domain.Garment

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txGarments := s.garments
		txSessions := s.sessions
		if tx != nil {
			txGarments = s.garments.WithTx(tx)
			txSessions = s.sessions.WithTx(tx)
		}

		// 2. Persist uploads, reusing live garments with the same content hash.
		persisted, created, err := s.resolveUploads(ctx, txGarments, req)
		if err != nil {
			return err
		}
		newGarments = created

		// 3. Resolve referenced existing garments; unresolvable ids drop silently.
		resolved := s.resolveExisting(ctx, txGarments, req)

		// 4. Union; an empty set is a validation error and creates no session.
		all := append(persisted, resolved...)
		if len(all) == 0 {
			return ErrNoGarments
		}

		// 5-6. Create the pending session with its anchor reference.
		session, err = domain.NewTryOnSession(req.OwnerID, stance, mannequinURL, all)
		if err != nil {
			return NewTryOnServiceError("submit", "failed to build session", err)
		}

		if err := txSessions.Create(ctx, session); err != nil {
			return NewTryOnServiceError("submit", "failed to persist session", err)
		}

		return nil
	})
	if err != nil {
		return nil, NewTryOnServiceError("submit", "submission transaction failed", err)
	}

	s.logger.Info("session created",
		"session_id", session.ID,
		"owner_id", req.OwnerID,
		"garment_count", len(session.Garments),
		"new_garment_count", len(newGarments),
		"stance", stance)

	// 7. Enqueue exactly one processing job for the session.
	event, err := events.NewTaskRequestEvent(task.TaskTypeTryOn, task.TryOnRequestPayload{
		SessionID: session.ID.String(),
		OwnerID:   req.OwnerID.String(),
		Stance:    string(stance),
	})
	if err != nil {
		return nil, NewTryOnServiceError("submit", "failed to create processing event", err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit processing event",
			"error", err,
			"session_id", session.ID,
			"event_id", event.ID)
		return nil, NewTryOnServiceError("submit", "failed to enqueue processing job", err)
	}

	// 8. The caller gets the session id now; the visual result arrives later.
	return &SubmitResult{
		SessionID:   session.ID,
		NewGarments: newGarments,
	}, nil
}

// resolveUploads persists each uploaded key as a garment, reusing an
// existing live garment when its content hash already exists for the owner.
// Returns all garments for the session and, separately, the ones this call
// created.
func (s *tryOnServiceImpl) resolveUploads(
	ctx context.Context,
	garments store.GarmentStore,
	req SubmitRequest,
) ([]*domain.Garment, []*domain.Garment, error) {
	all := make([]*domain.Garment, 0, len(req.Uploads))
	created := make([]*domain.Garment, 0, len(req.Uploads))

	for _, upload := range req.Uploads {
		if upload.Hash != "" {
			existing, err := garments.FindByHash(ctx, upload.Hash, req.OwnerID)
			if err == nil {
				s.logger.Debug("reusing garment with matching content hash",
					"garment_id", existing.ID,
					"hash", upload.Hash)
				all = append(all, existing)
				continue
			}
			if !store.IsNotFoundError(err) {
				return nil, nil, NewTryOnServiceError("submit", "hash lookup failed", err)
			}
		}

		garment, err := domain.NewGarment(req.OwnerID, s.objects.URL(upload.Key), req.Category, upload.Hash)
		if err != nil {
			return nil, nil, NewTryOnServiceError("submit", "invalid uploaded garment", err)
		}

		if err := garments.Create(ctx, garment); err != nil {
			return nil, nil, NewTryOnServiceError("submit", "failed to persist garment", err)
		}

		all = append(all, garment)
		created = append(created, garment)
	}

	return all, created, nil
}

// resolveExisting loads the referenced garments scoped to the owner. Ids
// that do not resolve, or resolve to tombstoned rows, are dropped silently.
func (s *tryOnServiceImpl) resolveExisting(
	ctx context.Context,
	garments store.GarmentStore,
	req SubmitRequest,
) []*domain.Garment {
	resolved := make([]*domain.Garment, 0, len(req.ExistingGarmentIDs))

	for _, id := range req.ExistingGarmentIDs {
		garment, err := garments.GetByID(ctx, id, req.OwnerID)
		if err != nil {
			s.logger.Debug("dropping unresolvable garment reference",
				"garment_id", id,
				"error", err)
			continue
		}
		if garment.IsDeleted() {
			s.logger.Debug("dropping tombstoned garment reference", "garment_id", id)
			continue
		}
		resolved = append(resolved, garment)
	}

	return resolved
}

// GetSession implements TryOnService.GetSession.
func (s *tryOnServiceImpl) GetSession(ctx context.Context, id, ownerID uuid.UUID) (*domain.TryOnSession, error) {
	session, err := s.sessions.GetByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, NewTryOnServiceError("get_session", "failed to retrieve session", err)
	}
	return session, nil
}
