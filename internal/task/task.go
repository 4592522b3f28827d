package task

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeTryOn represents the task type for compositing a try-on session
	TaskTypeTryOn = "try_on"

	// TaskTypeAnalyzeGarment represents the task type for enriching one garment
	TaskTypeAnalyzeGarment = "analyze_garment"

	// TaskTypeAnalyzeSession represents the task type for enriching one session result
	TaskTypeAnalyzeSession = "analyze_session"

	// TaskTypeSyncGarments represents the reconciliation sweep over garments
	TaskTypeSyncGarments = "sync_garments"

	// TaskTypeSyncSessions represents the reconciliation sweep over sessions
	TaskTypeSyncSessions = "sync_sessions"
)

// ErrNoExecutor is returned when a task loaded from the database is executed
// without having been rebuilt by a registered reconstructor.
var ErrNoExecutor = errors.New("no execution function defined for stored task")

// Task represents a unit of background work to be processed
// Version: 1.0
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskStore defines the interface for persisting tasks
// Version: 1.0
type TaskStore interface {
	// SaveTask persists a task to the database
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// CountPending returns the number of tasks of the given type still in
	// "pending" status. Admission control reads this as the waiting depth
	// for try-on work.
	CountPending(ctx context.Context, taskType string) (int, error)

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}

// StoredTask is the inert form of a task loaded from the database. It carries
// the persisted row but no behavior; a Registry rebuilds it into an
// executable task before the runner requeues it.
type StoredTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
}

// NewStoredTask creates a task value from a persisted row.
func NewStoredTask(id uuid.UUID, taskType string, payload []byte, status TaskStatus) *StoredTask {
	return &StoredTask{
		id:       id,
		taskType: taskType,
		payload:  payload,
		status:   status,
	}
}

// ID returns the task's unique identifier
func (t *StoredTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *StoredTask) Type() string {
	return t.taskType
}

// Payload returns the task data as a byte slice
func (t *StoredTask) Payload() []byte {
	return t.payload
}

// Status returns the current task status
func (t *StoredTask) Status() TaskStatus {
	return t.status
}

// Execute always fails: a StoredTask must be rebuilt through a Registry
// before it can run.
func (t *StoredTask) Execute(ctx context.Context) error {
	return ErrNoExecutor
}
