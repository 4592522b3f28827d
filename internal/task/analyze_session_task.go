package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/generation"
	"github.com/lasprendas/tryon-api/internal/storage"
	"github.com/lasprendas/tryon-api/internal/store"
)

// AnalyzeSessionTask implements the Task interface for enriching one
// completed try-on session with metadata extracted from its result image.
type AnalyzeSessionTask struct {
	id           uuid.UUID
	sessionID    uuid.UUID
	ownerID      uuid.UUID
	sessionStore store.SessionStore
	objects      storage.ObjectStore
	analyzer     generation.Analyzer
	logger       *slog.Logger
	status       TaskStatus
}

// NewAnalyzeSessionTask creates a new session analysis task
func NewAnalyzeSessionTask(
	sessionID uuid.UUID,
	ownerID uuid.UUID,
	sessionStore store.SessionStore,
	objects storage.ObjectStore,
	analyzer generation.Analyzer,
	logger *slog.Logger,
) (*AnalyzeSessionTask, error) {
	if sessionStore == nil {
		return nil, ErrNilSessionStore
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

	if sessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}
	if ownerID == uuid.Nil {
		return nil, ErrEmptyOwnerID
	}

	return &AnalyzeSessionTask{
		id:           uuid.New(),
		sessionID:    sessionID,
		ownerID:      ownerID,
		sessionStore: sessionStore,
		objects:      objects,
		analyzer:     analyzer,
		logger:       logger.With("task_type", TaskTypeAnalyzeSession, "session_id", sessionID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *AnalyzeSessionTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *AnalyzeSessionTask) Type() string {
	return TaskTypeAnalyzeSession
}

// Payload returns the task data as a byte slice
func (t *AnalyzeSessionTask) Payload() []byte {
	payload := analyzePayload{
		EntityID: t.sessionID,
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
func (t *AnalyzeSessionTask) Status() TaskStatus {
	return t.status
}

// Execute enriches the session from its result image. A missing, tombstoned
// or still-pending session is a no-op; reconciliation will revisit pending
// sessions once they complete. Upstream errors are returned so the queue's
// retry policy applies.
func (t *AnalyzeSessionTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting session analysis task")

	session, err := t.sessionStore.GetByID(ctx, t.sessionID, t.ownerID)
	if err != nil {
		if store.IsNotFoundError(err) {
			t.logger.Warn("session not found, skipping analysis")
			t.status = TaskStatusCompleted
			return nil
		}
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load session: %w", err)
	}

	if session.IsDeleted() || !session.IsCompleted() {
		t.logger.Info("skipping session",
			"deleted", session.IsDeleted(),
			"completed", session.IsCompleted())
		t.status = TaskStatusCompleted
		return nil
	}

	key, err := t.objects.KeyFromURL(*session.ResultURL)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to resolve result storage key: %w", err)
	}

	image, err := t.objects.Get(ctx, key)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to fetch result image", "error", err)
		return fmt.Errorf("failed to fetch result image: %w", err)
	}

	metadata, err := t.analyzer.ExtractMetadata(ctx, image)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to extract session metadata", "error", err)
		return fmt.Errorf("failed to extract session metadata: %w", err)
	}

	embedding, err := t.analyzer.GenerateEmbedding(ctx, metadata.Description.EN)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to generate embedding", "error", err)
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := session.SetEnrichment(metadata, embedding); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("invalid enrichment: %w", err)
	}

	if err := t.sessionStore.UpdateEnrichment(ctx, session); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to persist session enrichment", "error", err)
		return fmt.Errorf("failed to persist session enrichment: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("session analysis task completed successfully")
	return nil
}

// AnalyzeSessionTaskFactory creates AnalyzeSessionTask instances
type AnalyzeSessionTaskFactory struct {
	sessionStore store.SessionStore
	objects      storage.ObjectStore
	analyzer     generation.Analyzer
	logger       *slog.Logger
}

// NewAnalyzeSessionTaskFactory creates a new factory for AnalyzeSessionTasks
func NewAnalyzeSessionTaskFactory(
	sessionStore store.SessionStore,
	objects storage.ObjectStore,
	analyzer generation.Analyzer,
	logger *slog.Logger,
) *AnalyzeSessionTaskFactory {
	return &AnalyzeSessionTaskFactory{
		sessionStore: sessionStore,
		objects:      objects,
		analyzer:     analyzer,
		logger:       logger.With("component", "analyze_session_task_factory"),
	}
}

// CreateTask creates a new AnalyzeSessionTask for the specified session
func (f *AnalyzeSessionTaskFactory) CreateTask(sessionID, ownerID uuid.UUID) (Task, error) {
	task, err := NewAnalyzeSessionTask(
		sessionID,
		ownerID,
		f.sessionStore,
		f.objects,
		f.analyzer,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Reconstruct rebuilds an executable AnalyzeSessionTask from a stored row.
func (f *AnalyzeSessionTaskFactory) Reconstruct(id uuid.UUID, payload []byte) (Task, error) {
	var p analyzePayload
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid analyze payload: %w", err)
	}

	task, err := NewAnalyzeSessionTask(
		p.EntityID,
		p.OwnerID,
		f.sessionStore,
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

// Ensure AnalyzeSessionTaskFactory implements Reconstructor
var _ Reconstructor = (*AnalyzeSessionTaskFactory)(nil)
