// Package history persists learning sessions and the model registry to
// sqlite, so status reporting and summaries survive restarts. The in-memory
// pool stays authoritative for model selection; this store is the audit
// trail.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-brain/internal/database"
	"github.com/aristath/sentinel-brain/internal/domain"
)

// SessionRecord is one completed learn-from-market (or adaptation) session.
type SessionRecord struct {
	ID           string
	Method       domain.LearningMethod
	Success      bool
	R2           float64
	LearningTime float64
	ErrorMessage string
	CreatedAt    time.Time
}

// ModelRow is a registry entry for a persisted model artifact.
type ModelRow struct {
	ModelID       domain.ModelID
	Method        domain.LearningMethod
	Path          string
	Performance   float64
	ParentModelID domain.ModelID
	CreatedAt     time.Time
}

// Store is the sqlite-backed learning history repository.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// NewStore creates the store and initializes its schema.
func NewStore(db *database.DB, log zerolog.Logger) (*Store, error) {
	s := &Store{
		db:  db,
		log: log.With().Str("component", "history_store").Logger(),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS learning_sessions (
	id            TEXT PRIMARY KEY,
	method        TEXT NOT NULL,
	success       INTEGER NOT NULL,
	r2            REAL NOT NULL,
	learning_time REAL NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS model_registry (
	model_id        TEXT PRIMARY KEY,
	method          TEXT NOT NULL,
	path            TEXT NOT NULL,
	performance     REAL NOT NULL,
	parent_model_id TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON learning_sessions(created_at);
`
	_, err := s.db.Conn().Exec(schema)
	return err
}

// RecordSession appends a session record.
func (s *Store) RecordSession(rec SessionRecord) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO learning_sessions (id, method, success, r2, learning_time, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Method), boolToInt(rec.Success), rec.R2, rec.LearningTime, rec.ErrorMessage, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first. limit <= 0 means
// all.
func (s *Store) Sessions(limit int) ([]SessionRecord, error) {
	query := `SELECT id, method, success, r2, learning_time, error_message, created_at
	          FROM learning_sessions ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Conn().Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Conn().Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var method string
		var success int
		if err := rows.Scan(&rec.ID, &method, &success, &rec.R2, &rec.LearningTime, &rec.ErrorMessage, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec.Method = domain.LearningMethod(method)
		rec.Success = success != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SessionStats aggregates session counters for status reporting.
type SessionStats struct {
	Total              int
	Successful         int
	AverageTime        float64
	MethodDistribution map[string]int
}

// Stats computes aggregate session statistics.
func (s *Store) Stats() (SessionStats, error) {
	stats := SessionStats{MethodDistribution: map[string]int{}}

	row := s.db.Conn().QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(AVG(learning_time), 0) FROM learning_sessions`)
	if err := row.Scan(&stats.Total, &stats.Successful, &stats.AverageTime); err != nil {
		return stats, fmt.Errorf("failed to aggregate sessions: %w", err)
	}

	rows, err := s.db.Conn().Query(
		`SELECT method, COUNT(*) FROM learning_sessions WHERE success = 1 GROUP BY method`)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate methods: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var count int
		if err := rows.Scan(&method, &count); err != nil {
			return stats, err
		}
		stats.MethodDistribution[method] = count
	}
	return stats, rows.Err()
}

// RegisterModel upserts a model registry row.
func (s *Store) RegisterModel(row ModelRow) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO model_registry (model_id, method, path, performance, parent_model_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(model_id) DO UPDATE SET performance = excluded.performance, path = excluded.path`,
		string(row.ModelID), string(row.Method), row.Path, row.Performance, string(row.ParentModelID), row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to register model: %w", err)
	}
	return nil
}

// UnregisterModel removes a model registry row.
func (s *Store) UnregisterModel(id domain.ModelID) error {
	_, err := s.db.Conn().Exec(`DELETE FROM model_registry WHERE model_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to unregister model: %w", err)
	}
	return nil
}

// Models returns all registered models, best performance first.
func (s *Store) Models() ([]ModelRow, error) {
	rows, err := s.db.Conn().Query(
		`SELECT model_id, method, path, performance, parent_model_id, created_at
		 FROM model_registry ORDER BY performance DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var out []ModelRow
	for rows.Next() {
		var row ModelRow
		var id, method, parent string
		if err := rows.Scan(&id, &method, &row.Path, &row.Performance, &parent, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model row: %w", err)
		}
		row.ModelID = domain.ModelID(id)
		row.Method = domain.LearningMethod(method)
		row.ParentModelID = domain.ModelID(parent)
		out = append(out, row)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
