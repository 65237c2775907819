// Package config provides configuration management for the learning engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LearningConfig enumerates every recognized engine option.
type LearningConfig struct {
	// Strategy toggles. Any subset may be disabled; disabled strategies
	// simply contribute no candidate to learn-from-market runs.
	MetaLearningEnabled     bool
	TransferLearningEnabled bool
	AutoMLEnabled           bool
	NASEnabled              bool

	// MetaLearningTasksThreshold is the minimum task batch size for meta
	// learning to build knowledge.
	MetaLearningTasksThreshold int
	// TransferSimilarityThreshold is the domain similarity below which a
	// transfer is flagged (but still performed).
	TransferSimilarityThreshold float64

	// ModelStorageRoot is where winning model artifacts are persisted
	// ({root}/{model_id}_{method}.msgpack). Always absolute.
	ModelStorageRoot string
	// HistoryDBPath is the sqlite learning-history database path.
	HistoryDBPath string
	// MaxPoolSize bounds the in-memory model pool; cleanup keeps the top
	// performers when the pool overflows.
	MaxPoolSize int

	// EvalWorkers sizes the candidate-evaluation worker pool.
	EvalWorkers int
	// CandidateTimeout bounds a single candidate evaluation.
	CandidateTimeout time.Duration

	// AdaptationSchedule is a cron expression for the periodic drift
	// adaptation job. Empty disables the job.
	AdaptationSchedule string

	LogLevel string
}

// Load reads configuration from environment variables, with a .env file as
// fallback. The storage root is created if missing.
func Load() (*LearningConfig, error) {
	_ = godotenv.Load()

	storageRoot := getEnv("MODEL_STORAGE_ROOT", "./data/models")
	absRoot, err := filepath.Abs(storageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model storage root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create model storage root: %w", err)
	}

	cfg := &LearningConfig{
		MetaLearningEnabled:         getEnvAsBool("META_LEARNING_ENABLED", true),
		TransferLearningEnabled:     getEnvAsBool("TRANSFER_LEARNING_ENABLED", true),
		AutoMLEnabled:               getEnvAsBool("AUTO_ML_ENABLED", true),
		NASEnabled:                  getEnvAsBool("NAS_ENABLED", true),
		MetaLearningTasksThreshold:  getEnvAsInt("META_LEARNING_TASKS_THRESHOLD", 5),
		TransferSimilarityThreshold: getEnvAsFloat("TRANSFER_SIMILARITY_THRESHOLD", 0.7),
		ModelStorageRoot:            absRoot,
		HistoryDBPath:               getEnv("HISTORY_DB_PATH", filepath.Join(absRoot, "learning_history.db")),
		MaxPoolSize:                 getEnvAsInt("MAX_POOL_SIZE", 10),
		EvalWorkers:                 getEnvAsInt("EVAL_WORKERS", 4),
		CandidateTimeout:            getEnvAsDuration("CANDIDATE_TIMEOUT", 30*time.Second),
		AdaptationSchedule:          getEnv("ADAPTATION_SCHEDULE", ""),
		LogLevel:                    getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no environment is present,
// rooted at the given storage directory. Handy for tests and embedding.
func Default(storageRoot string) *LearningConfig {
	return &LearningConfig{
		MetaLearningEnabled:         true,
		TransferLearningEnabled:     true,
		AutoMLEnabled:               true,
		NASEnabled:                  true,
		MetaLearningTasksThreshold:  5,
		TransferSimilarityThreshold: 0.7,
		ModelStorageRoot:            storageRoot,
		HistoryDBPath:               filepath.Join(storageRoot, "learning_history.db"),
		MaxPoolSize:                 10,
		EvalWorkers:                 4,
		CandidateTimeout:            30 * time.Second,
		LogLevel:                    "info",
	}
}

// Validate checks option ranges.
func (c *LearningConfig) Validate() error {
	if c.MetaLearningTasksThreshold < 1 {
		return fmt.Errorf("meta learning tasks threshold must be >= 1, got %d", c.MetaLearningTasksThreshold)
	}
	if c.TransferSimilarityThreshold < 0 || c.TransferSimilarityThreshold > 1 {
		return fmt.Errorf("transfer similarity threshold must be in [0,1], got %f", c.TransferSimilarityThreshold)
	}
	if c.MaxPoolSize < 1 {
		return fmt.Errorf("max pool size must be >= 1, got %d", c.MaxPoolSize)
	}
	if c.ModelStorageRoot == "" {
		return fmt.Errorf("model storage root is required")
	}
	return nil
}

// Snapshot returns the config as a flat map for status reporting.
func (c *LearningConfig) Snapshot() map[string]any {
	return map[string]any{
		"meta_learning_enabled":         c.MetaLearningEnabled,
		"transfer_learning_enabled":     c.TransferLearningEnabled,
		"auto_ml_enabled":               c.AutoMLEnabled,
		"nas_enabled":                   c.NASEnabled,
		"meta_learning_tasks_threshold": c.MetaLearningTasksThreshold,
		"transfer_similarity_threshold": c.TransferSimilarityThreshold,
		"model_storage_root":            c.ModelStorageRoot,
		"max_pool_size":                 c.MaxPoolSize,
		"eval_workers":                  c.EvalWorkers,
		"candidate_timeout":             c.CandidateTimeout.String(),
		"adaptation_schedule":           c.AdaptationSchedule,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
