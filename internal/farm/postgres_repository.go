package farm

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// The boundary polygon is stored as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL farm repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const farmColumns = `
	id, farmer_id, name, boundary, area_hectares,
	created_at, updated_at, last_analyzed_at
`

// Get retrieves a farm by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Farm, error) {
	query := `
		SELECT ` + farmColumns + `
		FROM farms
		WHERE id = $1
	`

	return r.scanFarm(r.pool.QueryRow(ctx, query, id))
}

// GetByFarmerAndID retrieves a farm by farmer ID and farm ID.
func (r *PostgresRepository) GetByFarmerAndID(ctx context.Context, farmerID, farmID string) (*Farm, error) {
	query := `
		SELECT ` + farmColumns + `
		FROM farms
		WHERE id = $1 AND farmer_id = $2
	`

	return r.scanFarm(r.pool.QueryRow(ctx, query, farmID, farmerID))
}

// List retrieves all farms for a farmer in creation order.
func (r *PostgresRepository) List(ctx context.Context, farmerID string) ([]*Farm, error) {
	query := `
		SELECT ` + farmColumns + `
		FROM farms
		WHERE farmer_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, farmerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectFarms(rows)
}

// ListStale retrieves farms not analyzed since the cutoff.
func (r *PostgresRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*Farm, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + farmColumns + `
		FROM farms
		WHERE last_analyzed_at IS NULL OR last_analyzed_at < $1
		ORDER BY last_analyzed_at ASC NULLS FIRST
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectFarms(rows)
}

// Create creates a new farm.
func (r *PostgresRepository) Create(ctx context.Context, farm *Farm) error {
	query := `
		INSERT INTO farms (
			id, farmer_id, name, boundary, area_hectares,
			created_at, updated_at, last_analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		farm.ID,
		farm.FarmerID,
		farm.Name,
		farm.Boundary,
		farm.AreaHectares,
		farm.CreatedAt,
		farm.UpdatedAt,
		farm.LastAnalyzedAt,
	)
	return err
}

// Update updates an existing farm.
func (r *PostgresRepository) Update(ctx context.Context, farm *Farm) error {
	query := `
		UPDATE farms SET
			name = $2,
			boundary = $3,
			area_hectares = $4,
			updated_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		farm.ID,
		farm.Name,
		farm.Boundary,
		farm.AreaHectares,
		farm.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrFarmNotFound
	}

	return nil
}

// SetLastAnalyzed records the time of the farm's latest analysis.
func (r *PostgresRepository) SetLastAnalyzed(ctx context.Context, farmID string, analyzedAt time.Time) error {
	query := `UPDATE farms SET last_analyzed_at = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, farmID, analyzedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrFarmNotFound
	}
	return nil
}

// Delete deletes a farm by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM farms WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PostgresRepository) collectFarms(rows pgx.Rows) ([]*Farm, error) {
	var farms []*Farm
	for rows.Next() {
		farm, err := r.scanFarm(rows)
		if err != nil {
			return nil, err
		}
		farms = append(farms, farm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return farms, nil
}

func (r *PostgresRepository) scanFarm(row pgx.Row) (*Farm, error) {
	var farm Farm
	err := row.Scan(
		&farm.ID,
		&farm.FarmerID,
		&farm.Name,
		&farm.Boundary,
		&farm.AreaHectares,
		&farm.CreatedAt,
		&farm.UpdatedAt,
		&farm.LastAnalyzedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFarmNotFound
		}
		return nil, err
	}
	return &farm, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
