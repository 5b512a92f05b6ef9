package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// FarmerRepository defines the interface for farmer account operations.
type FarmerRepository interface {
	// FindByEmail finds a farmer by email, case-insensitively.
	FindByEmail(ctx context.Context, email string) (*Farmer, error)

	// Create creates a new farmer account.
	Create(ctx context.Context, farmer *Farmer) error

	// FindByID finds a farmer by their internal ID.
	FindByID(ctx context.Context, id string) (*Farmer, error)
}

// RefreshTokenRepository defines the interface for refresh token operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token.
	Create(ctx context.Context, token *RefreshToken) error

	// FindByToken finds a refresh token by its value.
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)

	// Revoke marks a refresh token as revoked.
	Revoke(ctx context.Context, token string) error

	// RevokeAllForFarmer revokes all refresh tokens for a farmer.
	RevokeAllForFarmer(ctx context.Context, farmerID string) error
}

// InMemoryFarmerRepository is an in-memory implementation of FarmerRepository.
// Intended for tests and local development.
type InMemoryFarmerRepository struct {
	mu      sync.RWMutex
	farmers map[string]*Farmer // keyed by farmer ID
	byEmail map[string]string  // lowercased email -> farmer ID
}

var _ FarmerRepository = (*InMemoryFarmerRepository)(nil)

// NewInMemoryFarmerRepository creates a new in-memory farmer repository.
func NewInMemoryFarmerRepository() *InMemoryFarmerRepository {
	return &InMemoryFarmerRepository{
		farmers: make(map[string]*Farmer),
		byEmail: make(map[string]string),
	}
}

// FindByEmail finds a farmer by email, case-insensitively.
func (r *InMemoryFarmerRepository) FindByEmail(_ context.Context, email string) (*Farmer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	farmerID, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrFarmerNotFound
	}

	farmer, ok := r.farmers[farmerID]
	if !ok {
		return nil, ErrFarmerNotFound
	}

	// Return a copy to avoid mutation
	copied := *farmer
	return &copied, nil
}

// Create creates a new farmer account.
func (r *InMemoryFarmerRepository) Create(_ context.Context, farmer *Farmer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[strings.ToLower(farmer.Email)]; exists {
		return ErrEmailTaken
	}

	copied := *farmer
	r.farmers[farmer.ID] = &copied
	r.byEmail[strings.ToLower(farmer.Email)] = farmer.ID

	return nil
}

// FindByID finds a farmer by their internal ID.
func (r *InMemoryFarmerRepository) FindByID(_ context.Context, id string) (*Farmer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	farmer, ok := r.farmers[id]
	if !ok {
		return nil, ErrFarmerNotFound
	}

	copied := *farmer
	return &copied, nil
}

// InMemoryRefreshTokenRepository is an in-memory implementation of
// RefreshTokenRepository. Intended for tests and local development.
type InMemoryRefreshTokenRepository struct {
	mu       sync.RWMutex
	tokens   map[string]*RefreshToken // keyed by token value
	byFarmer map[string][]string      // farmerID -> list of token values
}

var _ RefreshTokenRepository = (*InMemoryRefreshTokenRepository)(nil)

// NewInMemoryRefreshTokenRepository creates a new in-memory refresh token repository.
func NewInMemoryRefreshTokenRepository() *InMemoryRefreshTokenRepository {
	return &InMemoryRefreshTokenRepository{
		tokens:   make(map[string]*RefreshToken),
		byFarmer: make(map[string][]string),
	}
}

// Create stores a new refresh token.
func (r *InMemoryRefreshTokenRepository) Create(_ context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *token
	r.tokens[token.Token] = &copied
	r.byFarmer[token.FarmerID] = append(r.byFarmer[token.FarmerID], token.Token)

	return nil
}

// FindByToken finds a refresh token by its value.
func (r *InMemoryRefreshTokenRepository) FindByToken(_ context.Context, tokenValue string) (*RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[tokenValue]
	if !ok {
		return nil, ErrInvalidRefreshToken
	}

	copied := *token
	return &copied, nil
}

// Revoke marks a refresh token as revoked.
func (r *InMemoryRefreshTokenRepository) Revoke(_ context.Context, tokenValue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenValue]
	if !ok {
		return nil // already gone, treat as revoked
	}

	now := time.Now()
	token.RevokedAt = &now

	return nil
}

// RevokeAllForFarmer revokes all refresh tokens for a farmer.
func (r *InMemoryRefreshTokenRepository) RevokeAllForFarmer(_ context.Context, farmerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokenValues, ok := r.byFarmer[farmerID]
	if !ok {
		return nil
	}

	now := time.Now()
	for _, tokenValue := range tokenValues {
		if token, ok := r.tokens[tokenValue]; ok {
			token.RevokedAt = &now
		}
	}

	return nil
}
