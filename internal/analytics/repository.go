package analytics

import (
	"context"
	"time"
)

// Repository defines the interface for snapshot persistence.
type Repository interface {
	// Save stores a snapshot. A new snapshot for the same farm supersedes
	// older ones in "latest" queries but history is retained.
	Save(ctx context.Context, snapshot *Snapshot) error

	// Latest retrieves the most recent snapshot for a farm.
	// Returns ErrNoAnalytics when the farm has never been analyzed.
	Latest(ctx context.Context, farmID string) (*Snapshot, error)

	// ListSince retrieves a farm's snapshots with analysis dates on or
	// after since, ordered ascending by analysis date.
	ListSince(ctx context.Context, farmID string, since time.Time) ([]*Snapshot, error)

	// ListByFarmer retrieves the most recent snapshots across all of a
	// farmer's farms, newest first, capped at limit.
	ListByFarmer(ctx context.Context, farmerID string, limit int) ([]*Snapshot, error)

	// DeleteByFarm removes every snapshot stored for a farm.
	DeleteByFarm(ctx context.Context, farmID string) error
}
