package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFarmerRepository is a PostgreSQL implementation of FarmerRepository.
type PostgresFarmerRepository struct {
	pool *pgxpool.Pool
}

var _ FarmerRepository = (*PostgresFarmerRepository)(nil)

// NewPostgresFarmerRepository creates a new PostgreSQL farmer repository.
func NewPostgresFarmerRepository(pool *pgxpool.Pool) *PostgresFarmerRepository {
	return &PostgresFarmerRepository{pool: pool}
}

// FindByEmail finds a farmer by email, case-insensitively.
func (r *PostgresFarmerRepository) FindByEmail(ctx context.Context, email string) (*Farmer, error) {
	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM farmers
		WHERE lower(email) = lower($1)
	`

	var farmer Farmer
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&farmer.ID,
		&farmer.Email,
		&farmer.Name,
		&farmer.PasswordHash,
		&farmer.CreatedAt,
		&farmer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFarmerNotFound
		}
		return nil, err
	}

	return &farmer, nil
}

// Create creates a new farmer account.
func (r *PostgresFarmerRepository) Create(ctx context.Context, farmer *Farmer) error {
	query := `
		INSERT INTO farmers (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		farmer.ID,
		farmer.Email,
		farmer.Name,
		farmer.PasswordHash,
		farmer.CreatedAt,
		farmer.UpdatedAt,
	)
	return err
}

// FindByID finds a farmer by their internal ID.
func (r *PostgresFarmerRepository) FindByID(ctx context.Context, id string) (*Farmer, error) {
	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM farmers
		WHERE id = $1
	`

	var farmer Farmer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&farmer.ID,
		&farmer.Email,
		&farmer.Name,
		&farmer.PasswordHash,
		&farmer.CreatedAt,
		&farmer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFarmerNotFound
		}
		return nil, err
	}

	return &farmer, nil
}

// PostgresRefreshTokenRepository is a PostgreSQL implementation of RefreshTokenRepository.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

var _ RefreshTokenRepository = (*PostgresRefreshTokenRepository)(nil)

// NewPostgresRefreshTokenRepository creates a new PostgreSQL refresh token repository.
func NewPostgresRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

// Create stores a new refresh token.
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, token, farmer_id, expires_at, created_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.Token,
		token.FarmerID,
		token.ExpiresAt,
		token.CreatedAt,
		token.RevokedAt,
	)
	return err
}

// FindByToken finds a refresh token by its value.
func (r *PostgresRefreshTokenRepository) FindByToken(ctx context.Context, tokenValue string) (*RefreshToken, error) {
	query := `
		SELECT id, token, farmer_id, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token = $1
	`

	var token RefreshToken
	err := r.pool.QueryRow(ctx, query, tokenValue).Scan(
		&token.ID,
		&token.Token,
		&token.FarmerID,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	return &token, nil
}

// Revoke marks a refresh token as revoked.
func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, tokenValue string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE token = $2 AND revoked_at IS NULL
	`

	_, err := r.pool.Exec(ctx, query, time.Now(), tokenValue)
	return err
}

// RevokeAllForFarmer revokes all refresh tokens for a farmer.
func (r *PostgresRefreshTokenRepository) RevokeAllForFarmer(ctx context.Context, farmerID string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE farmer_id = $2 AND revoked_at IS NULL
	`

	_, err := r.pool.Exec(ctx, query, time.Now(), farmerID)
	return err
}
