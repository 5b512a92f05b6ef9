package analytics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory implementation of Repository for tests
// and local development.
type MemoryRepository struct {
	mu        sync.RWMutex
	snapshots []*Snapshot
}

// NewMemoryRepository creates a new in-memory snapshot repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save stores a snapshot.
func (r *MemoryRepository) Save(_ context.Context, snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *snapshot
	r.snapshots = append(r.snapshots, &copied)
	return nil
}

// Latest retrieves the most recent snapshot for a farm.
func (r *MemoryRepository) Latest(_ context.Context, farmID string) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Snapshot
	for _, s := range r.snapshots {
		if s.FarmID != farmID {
			continue
		}
		if latest == nil || s.AnalysisDate.After(latest.AnalysisDate) ||
			(s.AnalysisDate.Equal(latest.AnalysisDate) && s.CreatedAt.After(latest.CreatedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNoAnalytics
	}

	copied := *latest
	return &copied, nil
}

// ListSince retrieves a farm's snapshots since the given date, ascending.
func (r *MemoryRepository) ListSince(_ context.Context, farmID string, since time.Time) ([]*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Snapshot
	for _, s := range r.snapshots {
		if s.FarmID == farmID && !s.AnalysisDate.Before(since) {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AnalysisDate.Before(out[j].AnalysisDate)
	})
	return out, nil
}

// ListByFarmer retrieves the farmer's most recent snapshots, newest first.
func (r *MemoryRepository) ListByFarmer(_ context.Context, farmerID string, limit int) ([]*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var out []*Snapshot
	for _, s := range r.snapshots {
		if s.FarmerID == farmerID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AnalysisDate.After(out[j].AnalysisDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteByFarm removes every snapshot stored for a farm.
func (r *MemoryRepository) DeleteByFarm(_ context.Context, farmID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.snapshots[:0]
	for _, s := range r.snapshots {
		if s.FarmID != farmID {
			kept = append(kept, s)
		}
	}
	r.snapshots = kept
	return nil
}

// Ensure MemoryRepository implements Repository interface.
var _ Repository = (*MemoryRepository)(nil)
