package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
)

func record(id string, r2 float64, createdAt time.Time) ModelRecord {
	return ModelRecord{
		ModelID:     domain.ModelID(id),
		Estimator:   estimator.NewLinear(),
		Performance: estimator.Metrics{R2: r2},
		Method:      domain.MethodAutoML,
		CreatedAt:   createdAt,
	}
}

func TestModelPoolSnapshotOrdering(t *testing.T) {
	pool := NewModelPool()
	now := time.Now()

	pool.Add(record("low", 0.1, now))
	pool.Add(record("high", 0.9, now))
	pool.Add(record("mid", 0.5, now))

	snap := pool.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, domain.ModelID("high"), snap[0].ModelID)
	assert.Equal(t, domain.ModelID("mid"), snap[1].ModelID)
	assert.Equal(t, domain.ModelID("low"), snap[2].ModelID)
}

func TestModelPoolTieBreaksOnRecency(t *testing.T) {
	pool := NewModelPool()
	now := time.Now()

	pool.Add(record("older", 0.5, now.Add(-time.Hour)))
	pool.Add(record("newer", 0.5, now))

	snap := pool.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, domain.ModelID("newer"), snap[0].ModelID)
}

func TestModelPoolBestEmpty(t *testing.T) {
	pool := NewModelPool()
	_, ok := pool.Best()
	assert.False(t, ok)
}

func TestModelPoolAddReplaces(t *testing.T) {
	pool := NewModelPool()
	now := time.Now()

	pool.Add(record("m", 0.1, now))
	pool.Add(record("m", 0.8, now))

	assert.Equal(t, 1, pool.Len())
	best, ok := pool.Best()
	require.True(t, ok)
	assert.InDelta(t, 0.8, best.Performance.R2, 1e-9)
}

func TestModelPoolCleanup(t *testing.T) {
	pool := NewModelPool()
	now := time.Now()

	for i, r2 := range []float64{0.2, 0.8, 0.5, 0.9, 0.1} {
		pool.Add(record(string(rune('a'+i)), r2, now))
	}

	evicted := pool.Cleanup(3)
	require.Len(t, evicted, 2)
	assert.Equal(t, 3, pool.Len())

	// The worst performers are the ones evicted.
	evictedIDs := []domain.ModelID{evicted[0].ModelID, evicted[1].ModelID}
	assert.ElementsMatch(t, []domain.ModelID{"a", "e"}, evictedIDs)
}

func TestModelPoolCleanupNoOp(t *testing.T) {
	pool := NewModelPool()
	pool.Add(record("only", 0.5, time.Now()))

	assert.Nil(t, pool.Cleanup(5))
	assert.Equal(t, 1, pool.Len())
}

func TestModelPoolRemove(t *testing.T) {
	pool := NewModelPool()
	pool.Add(record("m", 0.5, time.Now()))
	pool.Remove("m")
	assert.Equal(t, 0, pool.Len())
}
