package service

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultAdmissionThreshold is the queue depth above which new submissions
// are rejected. The counter is read without a lock; a race between the check
// and the enqueue can admit slightly more than the threshold under load,
// which is acceptable for an advisory backpressure signal.
const DefaultAdmissionThreshold = 15

// QueueDepthReader reports how many try-on jobs are waiting, not yet
// started, on the durable queue. Implemented by task.TaskRunner.
type QueueDepthReader interface {
	CountWaiting(ctx context.Context) (int, error)
}

// AdmissionController decides whether a new submission may enter the
// pipeline. Stateless; it must run before any garment or session write so a
// rejected request leaves no orphaned rows.
type AdmissionController struct {
	queue     QueueDepthReader
	threshold int
	logger    *slog.Logger
}

// NewAdmissionController creates an AdmissionController with the given
// threshold. A threshold of zero or less falls back to the default.
func NewAdmissionController(
	queue QueueDepthReader,
	threshold int,
	logger *slog.Logger,
) (*AdmissionController, error) {
	if queue == nil {
		return nil, &TryOnServiceError{
			Operation: "create_admission_controller",
			Message:   "queue cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = DefaultAdmissionThreshold
	}

	return &AdmissionController{
		queue:     queue,
		threshold: threshold,
		logger:    logger.With("component", "admission_controller"),
	}, nil
}

// Admit returns nil when the submission may proceed, ErrCapacityExceeded
// when the queue depth is strictly above the threshold. A depth exactly at
// the threshold is still admitted.
func (c *AdmissionController) Admit(ctx context.Context) error {
	depth, err := c.queue.CountWaiting(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue depth: %w", err)
	}

	if depth > c.threshold {
		c.logger.Warn("submission rejected, queue saturated",
			"queue_depth", depth,
			"threshold", c.threshold)
		return ErrCapacityExceeded
	}

	c.logger.Debug("submission admitted",
		"queue_depth", depth,
		"threshold", c.threshold)
	return nil
}
