package learning

import (
	"sort"
	"sync"
	"time"

	"github.com/aristath/sentinel-brain/internal/domain"
	"github.com/aristath/sentinel-brain/internal/estimator"
)

// ModelRecord is an entry of the in-memory model pool.
type ModelRecord struct {
	ModelID       domain.ModelID
	Estimator     estimator.Estimator
	Performance   estimator.Metrics
	Method        domain.LearningMethod
	CreatedAt     time.Time
	ParentModelID domain.ModelID
	Path          string
}

// ModelPool is an arena of learned models keyed by ModelID. Reads take
// immutable snapshots; all mutation happens under a single writer lock so a
// reader never observes a partially-updated pool.
type ModelPool struct {
	mu      sync.RWMutex
	records map[domain.ModelID]ModelRecord
}

// NewModelPool creates an empty pool.
func NewModelPool() *ModelPool {
	return &ModelPool{records: make(map[domain.ModelID]ModelRecord)}
}

// Add inserts or replaces a record.
func (p *ModelPool) Add(rec ModelRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.ModelID] = rec
}

// Remove deletes a record. Removal is irreversible.
func (p *ModelPool) Remove(id domain.ModelID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, id)
}

// Len returns the pool size.
func (p *ModelPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

// Snapshot returns all records ranked by (performance, created_at)
// descending. The slice is a copy; mutating it does not affect the pool.
func (p *ModelPool) Snapshot() []ModelRecord {
	p.mu.RLock()
	out := make([]ModelRecord, 0, len(p.records))
	for _, rec := range p.records {
		out = append(out, rec)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Performance.R2 != out[j].Performance.R2 {
			return out[i].Performance.R2 > out[j].Performance.R2
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Best returns the best-performing record, if any.
func (p *ModelPool) Best() (ModelRecord, bool) {
	snap := p.Snapshot()
	if len(snap) == 0 {
		return ModelRecord{}, false
	}
	return snap[0], true
}

// Cleanup retains the top keep records by (performance, created_at) and
// returns the evicted ones.
func (p *ModelPool) Cleanup(keep int) []ModelRecord {
	if keep < 0 {
		keep = 0
	}

	snap := p.Snapshot()
	if len(snap) <= keep {
		return nil
	}
	evicted := snap[keep:]

	p.mu.Lock()
	for _, rec := range evicted {
		delete(p.records, rec.ModelID)
	}
	p.mu.Unlock()

	return evicted
}
