package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-brain/internal/database"
	"github.com/aristath/sentinel-brain/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
		Name: "test_history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestRecordAndListSessions(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.RecordSession(SessionRecord{
		ID:           "s1",
		Method:       domain.MethodAutoML,
		Success:      true,
		R2:           0.42,
		LearningTime: 1.5,
		CreatedAt:    now,
	}))
	require.NoError(t, store.RecordSession(SessionRecord{
		ID:           "s2",
		Method:       domain.MethodNAS,
		Success:      false,
		R2:           0,
		LearningTime: 0.4,
		ErrorMessage: "no usable model",
		CreatedAt:    now.Add(time.Minute),
	}))

	sessions, err := store.Sessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Newest first.
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, domain.MethodNAS, sessions[0].Method)
	assert.False(t, sessions[0].Success)
	assert.Equal(t, "no usable model", sessions[0].ErrorMessage)

	assert.Equal(t, "s1", sessions[1].ID)
	assert.True(t, sessions[1].Success)
	assert.InDelta(t, 0.42, sessions[1].R2, 1e-9)
}

func TestSessionsLimit(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordSession(SessionRecord{
			ID:        string(rune('a' + i)),
			Method:    domain.MethodAutoML,
			Success:   true,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	sessions, err := store.Sessions(3)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestStats(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.RecordSession(SessionRecord{
		ID: "a", Method: domain.MethodAutoML, Success: true, LearningTime: 2, CreatedAt: now,
	}))
	require.NoError(t, store.RecordSession(SessionRecord{
		ID: "b", Method: domain.MethodAutoML, Success: true, LearningTime: 4, CreatedAt: now,
	}))
	require.NoError(t, store.RecordSession(SessionRecord{
		ID: "c", Method: domain.MethodNAS, Success: false, LearningTime: 0, CreatedAt: now,
	}))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.InDelta(t, 2.0, stats.AverageTime, 1e-9)
	assert.Equal(t, map[string]int{"automl": 2}, stats.MethodDistribution)
}

func TestStatsEmpty(t *testing.T) {
	store := setupTestStore(t)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Successful)
	assert.Empty(t, stats.MethodDistribution)
}

func TestModelRegistry(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.RegisterModel(ModelRow{
		ModelID: "m1", Method: domain.MethodAutoML, Path: "/tmp/m1.msgpack", Performance: 0.3, CreatedAt: now,
	}))
	require.NoError(t, store.RegisterModel(ModelRow{
		ModelID: "m2", Method: domain.MethodNAS, Path: "/tmp/m2.msgpack", Performance: 0.6,
		ParentModelID: "m1", CreatedAt: now,
	}))

	models, err := store.Models()
	require.NoError(t, err)
	require.Len(t, models, 2)

	// Best performance first.
	assert.Equal(t, domain.ModelID("m2"), models[0].ModelID)
	assert.Equal(t, domain.ModelID("m1"), models[0].ParentModelID)
	assert.Equal(t, domain.ModelID("m1"), models[1].ModelID)
}

func TestRegisterModelUpsert(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.RegisterModel(ModelRow{
		ModelID: "m1", Method: domain.MethodAutoML, Path: "/a", Performance: 0.3, CreatedAt: now,
	}))
	require.NoError(t, store.RegisterModel(ModelRow{
		ModelID: "m1", Method: domain.MethodAutoML, Path: "/b", Performance: 0.5, CreatedAt: now,
	}))

	models, err := store.Models()
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "/b", models[0].Path)
	assert.InDelta(t, 0.5, models[0].Performance, 1e-9)
}

func TestUnregisterModel(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.RegisterModel(ModelRow{
		ModelID: "m1", Method: domain.MethodAutoML, Path: "/a", Performance: 0.3, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.UnregisterModel("m1"))

	models, err := store.Models()
	require.NoError(t, err)
	assert.Empty(t, models)
}
