package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lasprendas/tryon-api/internal/domain"
	"github.com/lasprendas/tryon-api/internal/events"
)

// TryOnRequestPayload is the event payload shape the submission path emits
// when a try-on session is ready for processing.
type TryOnRequestPayload struct {
	SessionID string `json:"session_id"`
	OwnerID   string `json:"owner_id"`
	Stance    string `json:"stance"`
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to handle task creation events and delegate them to the try-on task factory.
type TaskFactoryEventHandler struct {
	taskFactory *TryOnTaskFactory
	taskRunner  TaskSubmitter
	logger      *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	taskFactory *TryOnTaskFactory,
	taskRunner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent processes events by creating and submitting tasks.
// It extracts the payload from the event, creates the appropriate task,
// and submits it to the runner for execution.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeTryOn {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload TryOnRequestPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		h.logger.Error("invalid session ID",
			"error", err,
			"session_id", payload.SessionID,
			"event_id", event.ID)
		return fmt.Errorf("invalid session ID: %w", err)
	}

	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		h.logger.Error("invalid owner ID",
			"error", err,
			"owner_id", payload.OwnerID,
			"event_id", event.ID)
		return fmt.Errorf("invalid owner ID: %w", err)
	}

	stance := domain.ParseStance(payload.Stance)

	h.logger.Debug("creating try-on task", "session_id", sessionID, "event_id", event.ID)
	task, err := h.taskFactory.CreateTask(sessionID, ownerID, stance)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"session_id", sessionID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"session_id", sessionID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		"task_id", task.ID(),
		"session_id", sessionID,
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
