package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lasprendas/tryon-api/internal/store"
)

// SweepFactory creates the sweep task a scheduler fires on each tick.
// Implemented by SyncGarmentsTaskFactory and SyncSessionsTaskFactory.
type SweepFactory interface {
	CreateTask() (Task, error)
}

// SyncScheduler fires a reconciliation sweep on a fixed interval. One
// instance runs per entity type. The registration is persisted so restarts
// can detect and replace their own prior registration instead of stacking
// duplicates: Start removes any row under the scheduler's key before
// inserting a fresh one.
type SyncScheduler struct {
	key        string
	taskType   string
	interval   time.Duration
	jobs       store.RecurringJobStore
	factory    SweepFactory
	submitter  TaskSubmitter
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSyncScheduler creates a scheduler that fires tasks of the given type
// every interval. The key should be deterministic per task type.
func NewSyncScheduler(
	taskType string,
	interval time.Duration,
	jobs store.RecurringJobStore,
	factory SweepFactory,
	submitter TaskSubmitter,
	logger *slog.Logger,
) (*SyncScheduler, error) {
	if jobs == nil {
		return nil, fmt.Errorf("recurring job store cannot be nil")
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
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}

	return &SyncScheduler{
		key:       "recurring:" + taskType,
		taskType:  taskType,
		interval:  interval,
		jobs:      jobs,
		factory:   factory,
		submitter: submitter,
		logger:    logger.With("component", "sync_scheduler", "task_type", taskType),
	}, nil
}

// Start registers the recurring sweep and begins firing it. Any prior
// registration under the same key is removed first, so duplicate startups
// never produce duplicate triggers.
func (s *SyncScheduler) Start(ctx context.Context) error {
	existing, err := s.jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list recurring jobs: %w", err)
	}

	for _, job := range existing {
		if job.Key != s.key {
			continue
		}
		s.logger.Info("removing stale recurring registration", "key", job.Key)
		if err := s.jobs.Remove(ctx, job.Key); err != nil {
			return fmt.Errorf("failed to remove stale registration: %w", err)
		}
	}

	err = s.jobs.Register(ctx, store.RecurringJob{
		Key:      s.key,
		TaskType: s.taskType,
		Interval: s.interval,
	})
	if err != nil {
		return fmt.Errorf("failed to register recurring job: %w", err)
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	s.wg.Add(1)
	go s.run(tickCtx)

	s.logger.Info("scheduler started", "interval", s.interval.String())
	return nil
}

// Stop halts the ticker. The persisted registration is left in place; the
// next startup removes and replaces it.
func (s *SyncScheduler) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
}

func (s *SyncScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// fire creates and submits one sweep task. Failures are logged; the next
// tick tries again.
func (s *SyncScheduler) fire(ctx context.Context) {
	sweep, err := s.factory.CreateTask()
	if err != nil {
		s.logger.Error("failed to create sweep task", "error", err)
		return
	}

	if err := s.submitter.Submit(ctx, sweep); err != nil {
		s.logger.Error("failed to submit sweep task", "error", err)
		return
	}

	s.logger.Debug("sweep task submitted", "task_id", sweep.ID())
}
