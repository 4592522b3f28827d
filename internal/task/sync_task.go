package task

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/store"
)

// TaskSubmitter enqueues tasks for background processing. Implemented by
// TaskRunner; abstracted so sync tasks can be tested without a live runner.
// Version: 1.0
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// SyncGarmentsTask implements the Task interface for the garment
// reconciliation sweep: every non-deleted garment that still lacks metadata
// gets one analyze task enqueued. The sweep carries no payload and is
// idempotent; re-running it only re-enqueues what is still missing.
type SyncGarmentsTask struct {
	id           uuid.UUID
	garmentStore store.GarmentStore
	factory      *AnalyzeGarmentTaskFactory
	submitter    TaskSubmitter
	logger       *slog.Logger
	status       TaskStatus
}

// NewSyncGarmentsTask creates a new garment reconciliation sweep task
func NewSyncGarmentsTask(
	garmentStore store.GarmentStore,
	factory *AnalyzeGarmentTaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) (*SyncGarmentsTask, error) {
	if garmentStore == nil {
		return nil, ErrNilGarmentStore
	}
	if factory == nil {
		return nil, ErrNilFactory
	}
	if submitter == nil {
		return nil, ErrNilSubmitter
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &SyncGarmentsTask{
		id:           uuid.New(),
		garmentStore: garmentStore,
		factory:      factory,
		submitter:    submitter,
		logger:       logger.With("task_type", TaskTypeSyncGarments),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SyncGarmentsTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SyncGarmentsTask) Type() string {
	return TaskTypeSyncGarments
}

// Payload returns the task data as a byte slice. Sweeps carry no payload.
func (t *SyncGarmentsTask) Payload() []byte {
	return []byte("{}")
}

// Status returns the current task status
func (t *SyncGarmentsTask) Status() TaskStatus {
	return t.status
}

// Execute finds every garment missing its metadata and enqueues one analyze
// task per garment. A failed enqueue is logged and skipped; the next sweep
// rediscovers the garment.
func (t *SyncGarmentsTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing

	unprocessed, err := t.garmentStore.FindUnprocessed(ctx)
	if err != nil {
		t.status = TaskStatusFailed
		return err
	}

	if len(unprocessed) == 0 {
		t.status = TaskStatusCompleted
		return nil
	}

	t.logger.Info("sweep found unprocessed garments", "count", len(unprocessed))

	enqueued := 0
	for _, garment := range unprocessed {
		analyze, err := t.factory.CreateTask(garment.ID, garment.OwnerID)
		if err != nil {
			t.logger.Error("failed to create analyze task",
				"garment_id", garment.ID,
				"error", err)
			continue
		}

		if err := t.submitter.Submit(ctx, analyze); err != nil {
			t.logger.Error("failed to enqueue analyze task",
				"garment_id", garment.ID,
				"error", err)
			continue
		}

		enqueued++
	}

	t.logger.Info("garment sweep completed", "enqueued", enqueued)
	t.status = TaskStatusCompleted
	return nil
}

// SyncSessionsTask implements the Task interface for the session
// reconciliation sweep. Mirrors SyncGarmentsTask over try-on sessions.
type SyncSessionsTask struct {
	id           uuid.UUID
	sessionStore store.SessionStore
	factory      *AnalyzeSessionTaskFactory
	submitter    TaskSubmitter
	logger       *slog.Logger
	status       TaskStatus
}

// NewSyncSessionsTask creates a new session reconciliation sweep task
func NewSyncSessionsTask(
	sessionStore store.SessionStore,
	factory *AnalyzeSessionTaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) (*SyncSessionsTask, error) {
	if sessionStore == nil {
		return nil, ErrNilSessionStore
	}
	if factory == nil {
		return nil, ErrNilFactory
	}
	if submitter == nil {
		return nil, ErrNilSubmitter
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &SyncSessionsTask{
		id:           uuid.New(),
		sessionStore: sessionStore,
		factory:      factory,
		submitter:    submitter,
		logger:       logger.With("task_type", TaskTypeSyncSessions),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SyncSessionsTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SyncSessionsTask) Type() string {
	return TaskTypeSyncSessions
}

// Payload returns the task data as a byte slice. Sweeps carry no payload.
func (t *SyncSessionsTask) Payload() []byte {
	return []byte("{}")
}

// Status returns the current task status
func (t *SyncSessionsTask) Status() TaskStatus {
	return t.status
}

// Execute finds every non-deleted session missing its metadata and enqueues
// one analyze task per session. Sessions still waiting on a result are
// skipped by the analyze task itself.
func (t *SyncSessionsTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing

	unprocessed, err := t.sessionStore.FindUnprocessed(ctx)
	if err != nil {
		t.status = TaskStatusFailed
		return err
	}

	if len(unprocessed) == 0 {
		t.status = TaskStatusCompleted
		return nil
	}

	t.logger.Info("sweep found unprocessed sessions", "count", len(unprocessed))

	enqueued := 0
	for _, session := range unprocessed {
		analyze, err := t.factory.CreateTask(session.ID, session.OwnerID)
		if err != nil {
			t.logger.Error("failed to create analyze task",
				"session_id", session.ID,
				"error", err)
			continue
		}

		if err := t.submitter.Submit(ctx, analyze); err != nil {
			t.logger.Error("failed to enqueue analyze task",
				"session_id", session.ID,
				"error", err)
			continue
		}

		enqueued++
	}

	t.logger.Info("session sweep completed", "enqueued", enqueued)
	t.status = TaskStatusCompleted
	return nil
}

// SyncGarmentsTaskFactory creates SyncGarmentsTask instances
type SyncGarmentsTaskFactory struct {
	garmentStore store.GarmentStore
	factory      *AnalyzeGarmentTaskFactory
	submitter    TaskSubmitter
	logger       *slog.Logger
}

// NewSyncGarmentsTaskFactory creates a new factory for SyncGarmentsTasks
func NewSyncGarmentsTaskFactory(
	garmentStore store.GarmentStore,
	factory *AnalyzeGarmentTaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) *SyncGarmentsTaskFactory {
	return &SyncGarmentsTaskFactory{
		garmentStore: garmentStore,
		factory:      factory,
		submitter:    submitter,
		logger:       logger.With("component", "sync_garments_task_factory"),
	}
}

// CreateTask creates a new SyncGarmentsTask
func (f *SyncGarmentsTaskFactory) CreateTask() (Task, error) {
	return NewSyncGarmentsTask(f.garmentStore, f.factory, f.submitter, f.logger)
}

// Reconstruct rebuilds a SyncGarmentsTask from a stored row. Sweeps carry no
// payload, so only the ID is restored.
func (f *SyncGarmentsTaskFactory) Reconstruct(id uuid.UUID, payload []byte) (Task, error) {
	task, err := NewSyncGarmentsTask(f.garmentStore, f.factory, f.submitter, f.logger)
	if err != nil {
		return nil, err
	}
	task.id = id
	return task, nil
}

// SyncSessionsTaskFactory creates SyncSessionsTask instances
type SyncSessionsTaskFactory struct {
	sessionStore store.SessionStore
	factory      *AnalyzeSessionTaskFactory
	submitter    TaskSubmitter
	logger       *slog.Logger
}

// NewSyncSessionsTaskFactory creates a new factory for SyncSessionsTasks
func NewSyncSessionsTaskFactory(
	sessionStore store.SessionStore,
	factory *AnalyzeSessionTaskFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) *SyncSessionsTaskFactory {
	return &SyncSessionsTaskFactory{
		sessionStore: sessionStore,
		factory:      factory,
		submitter:    submitter,
		logger:       logger.With("component", "sync_sessions_task_factory"),
	}
}

// CreateTask creates a new SyncSessionsTask
func (f *SyncSessionsTaskFactory) CreateTask() (Task, error) {
	return NewSyncSessionsTask(f.sessionStore, f.factory, f.submitter, f.logger)
}

// Reconstruct rebuilds a SyncSessionsTask from a stored row.
func (f *SyncSessionsTaskFactory) Reconstruct(id uuid.UUID, payload []byte) (Task, error) {
	task, err := NewSyncSessionsTask(f.sessionStore, f.factory, f.submitter, f.logger)
	if err != nil {
		return nil, err
	}
	task.id = id
	return task, nil
}

// Ensure the sync factories implement Reconstructor
var (
	_ Reconstructor = (*SyncGarmentsTaskFactory)(nil)
	_ Reconstructor = (*SyncSessionsTaskFactory)(nil)
)
