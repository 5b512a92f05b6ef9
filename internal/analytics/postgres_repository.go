package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Derived metrics are stored as JSONB; the indexed columns carry what
// queries filter and order on.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const snapshotColumns = `
	id, farm_id, farmer_id, analysis_date,
	ndvi, ndmi, soil_moisture, irrigation, overall_health, satellite_data,
	created_at
`

// Save stores a snapshot.
func (r *PostgresRepository) Save(ctx context.Context, snapshot *Snapshot) error {
	query := `
		INSERT INTO farm_analytics (
			id, farm_id, farmer_id, analysis_date,
			ndvi, ndmi, soil_moisture, irrigation, overall_health, satellite_data,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		snapshot.ID,
		snapshot.FarmID,
		snapshot.FarmerID,
		snapshot.AnalysisDate,
		snapshot.NDVI,
		snapshot.NDMI,
		snapshot.SoilMoisture,
		snapshot.Irrigation,
		snapshot.Health,
		snapshot.Satellite,
		snapshot.CreatedAt,
	)
	return err
}

// Latest retrieves the most recent snapshot for a farm.
func (r *PostgresRepository) Latest(ctx context.Context, farmID string) (*Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM farm_analytics
		WHERE farm_id = $1
		ORDER BY analysis_date DESC, created_at DESC
		LIMIT 1
	`

	snapshot, err := r.scanSnapshot(r.pool.QueryRow(ctx, query, farmID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAnalytics
		}
		return nil, err
	}
	return snapshot, nil
}

// ListSince retrieves a farm's snapshots since the given date, ascending.
func (r *PostgresRepository) ListSince(ctx context.Context, farmID string, since time.Time) ([]*Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM farm_analytics
		WHERE farm_id = $1 AND analysis_date >= $2
		ORDER BY analysis_date ASC
	`

	rows, err := r.pool.Query(ctx, query, farmID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectSnapshots(rows)
}

// ListByFarmer retrieves the farmer's most recent snapshots, newest first.
func (r *PostgresRepository) ListByFarmer(ctx context.Context, farmerID string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + snapshotColumns + `
		FROM farm_analytics
		WHERE farmer_id = $1
		ORDER BY analysis_date DESC, created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, farmerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectSnapshots(rows)
}

// DeleteByFarm removes every snapshot stored for a farm.
func (r *PostgresRepository) DeleteByFarm(ctx context.Context, farmID string) error {
	query := `DELETE FROM farm_analytics WHERE farm_id = $1`
	_, err := r.pool.Exec(ctx, query, farmID)
	return err
}

func (r *PostgresRepository) collectSnapshots(rows pgx.Rows) ([]*Snapshot, error) {
	var snapshots []*Snapshot
	for rows.Next() {
		snapshot, err := r.scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *PostgresRepository) scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var snapshot Snapshot
	err := row.Scan(
		&snapshot.ID,
		&snapshot.FarmID,
		&snapshot.FarmerID,
		&snapshot.AnalysisDate,
		&snapshot.NDVI,
		&snapshot.NDMI,
		&snapshot.SoilMoisture,
		&snapshot.Irrigation,
		&snapshot.Health,
		&snapshot.Satellite,
		&snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
