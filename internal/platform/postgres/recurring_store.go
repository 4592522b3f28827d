package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lasprendas/tryon-api/internal/platform/logger"
	"github.com/lasprendas/tryon-api/internal/store"
)

// PostgresRecurringJobStore implements the store.RecurringJobStore interface
// using PostgreSQL. Intervals are stored as milliseconds so the row survives
// restarts without Go-specific encoding.
type PostgresRecurringJobStore struct {
	db store.DBTX
}

// NewPostgresRecurringJobStore creates a new PostgresRecurringJobStore
func NewPostgresRecurringJobStore(db store.DBTX) *PostgresRecurringJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresRecurringJobStore{
		db: db,
	}
}

// Ensure PostgresRecurringJobStore implements store.RecurringJobStore interface
var _ store.RecurringJobStore = (*PostgresRecurringJobStore)(nil)

// List implements store.RecurringJobStore.List
func (s *PostgresRecurringJobStore) List(ctx context.Context) ([]store.RecurringJob, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT key, task_type, interval_ms, created_at
		FROM recurring_jobs
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list recurring jobs", "error", err)
		return nil, fmt.Errorf("failed to list recurring jobs: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []store.RecurringJob
	for rows.Next() {
		var job store.RecurringJob
		var intervalMs int64
		if err := rows.Scan(&job.Key, &job.TaskType, &intervalMs, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring job row: %w", err)
		}
		job.Interval = time.Duration(intervalMs) * time.Millisecond
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring job rows: %w", err)
	}

	return jobs, nil
}

// Remove implements store.RecurringJobStore.Remove
// Removing a key that does not exist is not an error.
func (s *PostgresRecurringJobStore) Remove(ctx context.Context, key string) error {
	log := logger.FromContext(ctx)

	_, err := s.db.ExecContext(ctx, `DELETE FROM recurring_jobs WHERE key = $1`, key)
	if err != nil {
		log.Error("failed to remove recurring job",
			"key", key,
			"error", err)
		return fmt.Errorf("failed to remove recurring job: %w", MapError(err))
	}

	return nil
}

// Register implements store.RecurringJobStore.Register
func (s *PostgresRecurringJobStore) Register(ctx context.Context, job store.RecurringJob) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO recurring_jobs (key, task_type, interval_ms, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET task_type = EXCLUDED.task_type,
		    interval_ms = EXCLUDED.interval_ms,
		    created_at = EXCLUDED.created_at
	`

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		job.Key,
		job.TaskType,
		job.Interval.Milliseconds(),
		createdAt,
	)
	if err != nil {
		log.Error("failed to register recurring job",
			"key", job.Key,
			"task_type", job.TaskType,
			"error", err)
		return fmt.Errorf("failed to register recurring job: %w", MapError(err))
	}

	log.Info("recurring job registered",
		"key", job.Key,
		"task_type", job.TaskType,
		"interval", job.Interval.String())
	return nil
}
