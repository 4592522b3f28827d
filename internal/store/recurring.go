package store

import (
	"context"
	"time"
)

// RecurringJob is a persisted registration of a periodically triggered task.
// Registrations survive restarts so schedulers can detect and remove their
// own stale entries before installing a fresh one.
type RecurringJob struct {
	// Key uniquely identifies the registration. Schedulers use a
	// deterministic key per task type so remove-then-register converges.
	Key string

	// TaskType is the task type the trigger fires.
	TaskType string

	// Interval is the fixed period between firings.
	Interval time.Duration

	// CreatedAt is when this registration was installed.
	CreatedAt time.Time
}

// RecurringJobStore defines the interface for recurring job registrations.
// Version: 1.0
type RecurringJobStore interface {
	// List returns all recurring job registrations.
	List(ctx context.Context) ([]RecurringJob, error)

	// Remove deletes the registration with the given key. Removing a key
	// that does not exist is not an error.
	Remove(ctx context.Context, key string) error

	// Register installs a new registration, replacing any existing row with
	// the same key.
	Register(ctx context.Context, job RecurringJob) error
}
