package farm

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory implementation of Repository for tests
// and local development.
type MemoryRepository struct {
	mu    sync.RWMutex
	farms map[string]*Farm
	order []string
}

// NewMemoryRepository creates a new in-memory farm repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{farms: make(map[string]*Farm)}
}

// Get retrieves a farm by ID.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Farm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	farm, ok := r.farms[id]
	if !ok {
		return nil, ErrFarmNotFound
	}
	copied := *farm
	return &copied, nil
}

// GetByFarmerAndID retrieves a farm by farmer ID and farm ID.
func (r *MemoryRepository) GetByFarmerAndID(_ context.Context, farmerID, farmID string) (*Farm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	farm, ok := r.farms[farmID]
	if !ok || farm.FarmerID != farmerID {
		return nil, ErrFarmNotFound
	}
	copied := *farm
	return &copied, nil
}

// List retrieves all farms for a farmer in creation order.
func (r *MemoryRepository) List(_ context.Context, farmerID string) ([]*Farm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Farm
	for _, id := range r.order {
		farm, ok := r.farms[id]
		if !ok || farm.FarmerID != farmerID {
			continue
		}
		copied := *farm
		out = append(out, &copied)
	}
	return out, nil
}

// ListStale retrieves farms not analyzed since the cutoff.
func (r *MemoryRepository) ListStale(_ context.Context, cutoff time.Time, limit int) ([]*Farm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var out []*Farm
	for _, id := range r.order {
		farm := r.farms[id]
		if farm == nil {
			continue
		}
		if farm.LastAnalyzedAt == nil || farm.LastAnalyzedAt.Before(cutoff) {
			copied := *farm
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastAnalyzedAt, out[j].LastAnalyzedAt
		switch {
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Create creates a new farm.
func (r *MemoryRepository) Create(_ context.Context, farm *Farm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *farm
	r.farms[farm.ID] = &copied
	r.order = append(r.order, farm.ID)
	return nil
}

// Update updates an existing farm.
func (r *MemoryRepository) Update(_ context.Context, farm *Farm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.farms[farm.ID]
	if !ok {
		return ErrFarmNotFound
	}
	copied := *farm
	copied.LastAnalyzedAt = existing.LastAnalyzedAt
	r.farms[farm.ID] = &copied
	return nil
}

// SetLastAnalyzed records the time of the farm's latest analysis.
func (r *MemoryRepository) SetLastAnalyzed(_ context.Context, farmID string, analyzedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	farm, ok := r.farms[farmID]
	if !ok {
		return ErrFarmNotFound
	}
	at := analyzedAt
	farm.LastAnalyzedAt = &at
	return nil
}

// Delete deletes a farm by ID.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.farms, id)
	for i, fid := range r.order {
		if fid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ensure MemoryRepository implements Repository interface.
var _ Repository = (*MemoryRepository)(nil)
