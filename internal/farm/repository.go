package farm

import (
	"context"
	"time"
)

// Repository defines the interface for farm data persistence.
type Repository interface {
	// Get retrieves a farm by ID.
	Get(ctx context.Context, id string) (*Farm, error)

	// GetByFarmerAndID retrieves a farm by farmer ID and farm ID.
	// Returns ErrFarmNotFound if the farm doesn't exist or doesn't belong
	// to the farmer.
	GetByFarmerAndID(ctx context.Context, farmerID, farmID string) (*Farm, error)

	// List retrieves all farms for a farmer in creation order.
	List(ctx context.Context, farmerID string) ([]*Farm, error)

	// ListStale retrieves farms whose last analysis is older than the
	// cutoff (never-analyzed farms included), capped at limit.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*Farm, error)

	// Create creates a new farm.
	Create(ctx context.Context, farm *Farm) error

	// Update updates an existing farm.
	Update(ctx context.Context, farm *Farm) error

	// SetLastAnalyzed records the time of the farm's latest analysis.
	SetLastAnalyzed(ctx context.Context, farmID string, analyzedAt time.Time) error

	// Delete deletes a farm by ID.
	Delete(ctx context.Context, id string) error
}
