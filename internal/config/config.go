package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Gemini   GeminiConfig   `mapstructure:"gemini" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// StorageConfig contains the object storage (S3-compatible) settings.
type StorageConfig struct {
	Bucket   string `mapstructure:"bucket" validate:"required"`
	Region   string `mapstructure:"region" validate:"required"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

// GeminiConfig contains the generative model integration settings.
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key" validate:"required"`
	ComposeModel   string `mapstructure:"compose_model" validate:"required"`
	MetadataModel  string `mapstructure:"metadata_model" validate:"required"`
	EmbeddingModel string `mapstructure:"embedding_model" validate:"required"`
}

// WorkerConfig contains the background processing settings.
type WorkerConfig struct {
	// Concurrency is the size of the try-on worker pool.
	Concurrency int `mapstructure:"concurrency" validate:"required,gt=0"`

	// QueueSize is the buffer size of the in-memory task channel.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// AdmissionThreshold is the waiting-job count above which new
	// submissions are rejected.
	AdmissionThreshold int `mapstructure:"admission_threshold" validate:"required,gt=0"`

	// SyncIntervalMinutes is the period of the reconciliation sync jobs.
	SyncIntervalMinutes int `mapstructure:"sync_interval_minutes" validate:"required,gt=0"`
}
