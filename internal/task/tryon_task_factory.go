package task

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/generation"
	"github.com/lasprendas/tryon-api/internal/media"
	"github.com/lasprendas/tryon-api/internal/storage"
	"github.com/lasprendas/tryon-api/internal/store"
)

// TryOnTaskFactory creates TryOnTask instances
type TryOnTaskFactory struct {
	sessionStore store.SessionStore
	objects      storage.ObjectStore
	normalizer   *media.Normalizer
	composer     generation.Composer
	analyzer     generation.Analyzer
	logger       *slog.Logger
}

// NewTryOnTaskFactory creates a new factory for TryOnTasks
func NewTryOnTaskFactory(
	sessionStore store.SessionStore,
	objects storage.ObjectStore,
	normalizer *media.Normalizer,
	composer generation.Composer,
	analyzer generation.Analyzer,
	logger *slog.Logger,
) *TryOnTaskFactory {
	return &TryOnTaskFactory{
		sessionStore: sessionStore,
		objects:      objects,
		normalizer:   normalizer,
		composer:     composer,
		analyzer:     analyzer,
		logger:       logger.With("component", "tryon_task_factory"),
	}
}

// CreateTask creates a new TryOnTask for the specified session
func (f *TryOnTaskFactory) CreateTask(
	sessionID uuid.UUID,
	ownerID uuid.UUID,
	stance domain.Stance,
) (Task, error) {
	task, err := NewTryOnTask(
		sessionID,
		ownerID,
		stance,
		f.sessionStore,
		f.objects,
		f.normalizer,
		f.composer,
		f.analyzer,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Reconstruct rebuilds an executable TryOnTask from a stored row, keeping
// the row's ID so status updates land on the original record.
func (f *TryOnTaskFactory) Reconstruct(id uuid.UUID, payload []byte) (Task, error) {
	var p tryOnPayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid try-on payload: %w", err)
	}

	task, err := NewTryOnTask(
		p.SessionID,
		p.OwnerID,
		p.Stance,
		f.sessionStore,
		f.objects,
		f.normalizer,
		f.composer,
		f.analyzer,
		f.logger,
	)
	if err != nil {
		return nil, err
	}

	task.id = id
	return task, nil
}

// Ensure TryOnTaskFactory implements Reconstructor
var _ Reconstructor = (*TryOnTaskFactory)(nil)
