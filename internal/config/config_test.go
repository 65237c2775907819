package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MODEL_STORAGE_ROOT", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.MetaLearningEnabled)
	assert.True(t, cfg.TransferLearningEnabled)
	assert.True(t, cfg.AutoMLEnabled)
	assert.True(t, cfg.NASEnabled)
	assert.Equal(t, 5, cfg.MetaLearningTasksThreshold)
	assert.Equal(t, 0.7, cfg.TransferSimilarityThreshold)
	assert.Equal(t, 10, cfg.MaxPoolSize)
	assert.Equal(t, 30*time.Second, cfg.CandidateTimeout)
	assert.Empty(t, cfg.AdaptationSchedule)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MODEL_STORAGE_ROOT", dir)
	t.Setenv("META_LEARNING_ENABLED", "false")
	t.Setenv("META_LEARNING_TASKS_THRESHOLD", "8")
	t.Setenv("TRANSFER_SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("MAX_POOL_SIZE", "3")
	t.Setenv("CANDIDATE_TIMEOUT", "10s")
	t.Setenv("ADAPTATION_SCHEDULE", "0 * * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.MetaLearningEnabled)
	assert.Equal(t, 8, cfg.MetaLearningTasksThreshold)
	assert.Equal(t, 0.5, cfg.TransferSimilarityThreshold)
	assert.Equal(t, 3, cfg.MaxPoolSize)
	assert.Equal(t, 10*time.Second, cfg.CandidateTimeout)
	assert.Equal(t, "0 * * * *", cfg.AdaptationSchedule)
	assert.Equal(t, filepath.Join(dir, "learning_history.db"), cfg.HistoryDBPath)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MODEL_STORAGE_ROOT", t.TempDir())
	t.Setenv("MAX_POOL_SIZE", "not-a-number")
	t.Setenv("META_LEARNING_ENABLED", "definitely")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxPoolSize)
	assert.True(t, cfg.MetaLearningEnabled)
}

func TestValidate(t *testing.T) {
	cfg := Default(t.TempDir())
	assert.NoError(t, cfg.Validate())

	bad := Default(t.TempDir())
	bad.MaxPoolSize = 0
	assert.Error(t, bad.Validate())

	bad = Default(t.TempDir())
	bad.TransferSimilarityThreshold = 1.5
	assert.Error(t, bad.Validate())

	bad = Default(t.TempDir())
	bad.MetaLearningTasksThreshold = 0
	assert.Error(t, bad.Validate())

	bad = Default(t.TempDir())
	bad.ModelStorageRoot = ""
	assert.Error(t, bad.Validate())
}

func TestSnapshot(t *testing.T) {
	cfg := Default(t.TempDir())
	snap := cfg.Snapshot()

	assert.Equal(t, true, snap["meta_learning_enabled"])
	assert.Equal(t, 10, snap["max_pool_size"])
	assert.Equal(t, "30s", snap["candidate_timeout"])
}
