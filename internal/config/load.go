package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and optionally a
// config.yaml in the working directory. Environment variables take precedence
// over values from the config file and use the TRYON_ prefix with underscores
// for nesting (e.g. TRYON_SERVER_PORT, TRYON_GEMINI_API_KEY).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep local development workable with only the secrets set.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("storage.region", "nyc3")
	v.SetDefault("gemini.compose_model", "gemini-2.5-flash-image-preview")
	v.SetDefault("gemini.metadata_model", "gemini-2.0-flash-lite")
	v.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("worker.admission_threshold", 15)
	v.SetDefault("worker.sync_interval_minutes", 5)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRYON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone is not enough: Unmarshal only visits keys viper
	// already knows about, so env-only keys without a default (the secrets)
	// would never be read. Bind every key explicitly.
	for _, key := range []string{
		"server.port", "server.log_level",
		"database.url",
		"storage.bucket", "storage.region", "storage.endpoint",
		"gemini.api_key", "gemini.compose_model", "gemini.metadata_model", "gemini.embedding_model",
		"worker.concurrency", "worker.queue_size", "worker.admission_threshold", "worker.sync_interval_minutes",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything. Any other read failure is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
