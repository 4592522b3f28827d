package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/generation"
	"github.com/lasprendas/tryon-api/internal/storage"
	"github.com/lasprendas/tryon-api/internal/store"
)

// ErrEmptyGarmentID is returned when an analyze task is created without a garment ID.
var ErrEmptyGarmentID = errors.New("garment ID cannot be empty")

// analyzePayload is the shared payload shape of both analyze-one task kinds.
type analyzePayload struct {
	EntityID uuid.UUID `json:"entity_id"`
	OwnerID  uuid.UUID `json:"owner_id"`
}

// AnalyzeGarmentTask implements the Task interface for enriching one garment
// with extracted metadata and a description embedding.
type AnalyzeGarmentTask struct {
	id           uuid.UUID
	garmentID    uuid.UUID
	ownerID      uuid.UUID
	garmentStore store.GarmentStore
	objects      storage.ObjectStore
	analyzer     generation.Analyzer
	logger       *slog.Logger
	status       TaskStatus
}

// NewAnalyzeGarmentTask creates a new garment analysis task
func NewAnalyzeGarmentTask(
	garmentID uuid.UUID,
	ownerID uuid.UUID,
	garmentStore store.GarmentStore,
	objects storage.ObjectStore,
	analyzer generation.Analyzer,
	logger *slog.Logger,
) (*AnalyzeGarmentTask, error) {
	if garmentStore == nil {
		return nil, ErrNilGarmentStore
	}
	if objects == nil {
		return nil, ErrNilObjectStore
	}
	if analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	if garmentID == uuid.Nil {
		return nil, ErrEmptyGarmentID
	}
	if ownerID == uuid.Nil {
		return nil, ErrEmptyOwnerID
	}

	return &AnalyzeGarmentTask{
		id:           uuid.New(),
		garmentID:    garmentID,
		ownerID:      ownerID,
		garmentStore: garmentStore,
		objects:      objects,
		analyzer:     analyzer,
		logger:       logger.With("task_type", TaskTypeAnalyzeGarment, "garment_id", garmentID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *AnalyzeGarmentTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *AnalyzeGarmentTask) Type() string {
	return TaskTypeAnalyzeGarment
}

// Payload returns the task data as a byte slice
func (t *AnalyzeGarmentTask) Payload() []byte {
	payload := analyzePayload{
		EntityID: t.garmentID,
		OwnerID:  t.ownerID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *AnalyzeGarmentTask) Status() TaskStatus {
	return t.status
}

// Execute enriches the garment: fetch its original image, extract the
// structured metadata, embed the English description and persist both
// together. A missing or tombstoned garment is a no-op, not a failure; any
// upstream error is returned so the queue's retry policy applies.
func (t *AnalyzeGarmentTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting garment analysis task")

	garment, err := t.garmentStore.GetByID(ctx, t.garmentID, t.ownerID)
	if err != nil {
		if store.IsNotFoundError(err) {
			t.logger.Warn("garment not found, skipping analysis")
			t.status = TaskStatusCompleted
			return nil
		}
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load garment: %w", err)
	}

	if garment.IsDeleted() {
		t.logger.Info("skipping deleted garment")
		t.status = TaskStatusCompleted
		return nil
	}

	key, err := t.objects.KeyFromURL(garment.OriginalURL)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to resolve garment storage key: %w", err)
	}

	image, err := t.objects.Get(ctx, key)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to fetch garment image", "error", err)
		return fmt.Errorf("failed to fetch garment image: %w", err)
	}

	metadata, err := t.analyzer.ExtractMetadata(ctx, image)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to extract garment metadata", "error", err)
		return fmt.Errorf("failed to extract garment metadata: %w", err)
	}

	// English descriptions give more consistent vectors than mixed-language input.
	embedding, err := t.analyzer.GenerateEmbedding(ctx, metadata.Description.EN)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to generate embedding", "error", err)
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := garment.SetEnrichment(metadata, embedding); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("invalid enrichment: %w", err)
	}

	if err := t.garmentStore.UpdateEnrichment(ctx, garment); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to persist garment enrichment", "error", err)
		return fmt.Errorf("failed to persist garment enrichment: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("garment analysis task completed successfully")
	return nil
}

// AnalyzeGarmentTaskFactory creates AnalyzeGarmentTask instances
type AnalyzeGarmentTaskFactory struct {
	garmentStore store.GarmentStore
	objects      storage.ObjectStore
	analyzer     generation.Analyzer
	logger       *slog.Logger
}

// NewAnalyzeGarmentTaskFactory creates a new factory for AnalyzeGarmentTasks
func NewAnalyzeGarmentTaskFactory(
	garmentStore store.GarmentStore,
	objects storage.ObjectStore,
	analyzer generation.Analyzer,
	logger *slog.Logger,
) *AnalyzeGarmentTaskFactory {
	return &AnalyzeGarmentTaskFactory{
		garmentStore: garmentStore,
		objects:      objects,
		analyzer:     analyzer,
		logger:       logger.With("component", "analyze_garment_task_factory"),
	}
}

// CreateTask creates a new AnalyzeGarmentTask for the specified garment
func (f *AnalyzeGarmentTaskFactory) CreateTask(garmentID, ownerID uuid.UUID) (Task, error) {
	task, err := NewAnalyzeGarmentTask(
		garmentID,
		ownerID,
		f.garmentStore,
		f.objects,
		f.analyzer,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Reconstruct rebuilds an executable AnalyzeGarmentTask from a stored row.
func (f *AnalyzeGarmentTaskFactory) Reconstruct(id uuid.UUID, payload []byte) (Task, error) {
	var p analyzePayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid analyze payload: %w", err)
	}

	task, err := NewAnalyzeGarmentTask(
		p.EntityID,
		p.OwnerID,
		f.garmentStore,
		f.objects,
		f.analyzer,
		f.logger,
	)
	if err != nil {
		return nil, err
	}

	task.id = id
	return task, nil
}

// Ensure AnalyzeGarmentTaskFactory implements Reconstructor
var _ Reconstructor = (*AnalyzeGarmentTaskFactory)(nil)
