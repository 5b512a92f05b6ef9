package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	jwtService := NewJWTService(JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.cropsight.io",
		Audience:   "cropsight-api",
	})

	return NewService(ServiceConfig{
		JWTService:  jwtService,
		FarmerRepo:  NewInMemoryFarmerRepository(),
		RefreshRepo: NewInMemoryRefreshTokenRepository(),
	})
}

func register(t *testing.T, svc *Service, email string) *TokenResponse {
	t.Helper()

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    email,
		Password: "plant-more-trees",
		Name:     "Test Farmer",
	})
	require.NoError(t, err)
	return resp
}

func TestService_Register(t *testing.T) {
	svc := newTestService()

	resp := register(t, svc, "farmer@example.com")

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Greater(t, resp.ExpiresIn, int64(0))

	require.NotNil(t, resp.Farmer)
	assert.True(t, strings.HasPrefix(resp.Farmer.ID, "fmr_"))
	assert.Equal(t, "farmer@example.com", resp.Farmer.Email)
	assert.NotEqual(t, "plant-more-trees", resp.Farmer.PasswordHash)
}

func TestService_Register_NormalizesEmail(t *testing.T) {
	svc := newTestService()

	resp := register(t, svc, "  Farmer@Example.COM ")

	assert.Equal(t, "farmer@example.com", resp.Farmer.Email)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc := newTestService()
	register(t, svc, "farmer@example.com")

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "FARMER@example.com",
		Password: "another-password",
	})

	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_Register_ShortPassword(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "farmer@example.com",
		Password: "short",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must be at least 8 characters")
}

func TestService_Login(t *testing.T) {
	svc := newTestService()
	registered := register(t, svc, "farmer@example.com")

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "farmer@example.com",
		Password: "plant-more-trees",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, registered.Farmer.ID, resp.Farmer.ID)
}

func TestService_Login_WrongPassword(t *testing.T) {
	svc := newTestService()
	register(t, svc, "farmer@example.com")

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "farmer@example.com",
		Password: "wrong-password",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_UnknownEmail(t *testing.T) {
	svc := newTestService()

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "nobody@example.com",
		Password: "plant-more-trees",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RefreshAccessToken_RotatesToken(t *testing.T) {
	svc := newTestService()
	registered := register(t, svc, "farmer@example.com")

	refreshed, err := svc.RefreshAccessToken(context.Background(), registered.RefreshToken)
	require.NoError(t, err)

	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked and cannot be replayed.
	_, err = svc.RefreshAccessToken(context.Background(), registered.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The rotated token still works.
	_, err = svc.RefreshAccessToken(context.Background(), refreshed.RefreshToken)
	assert.NoError(t, err)
}

func TestService_RefreshAccessToken_UnknownToken(t *testing.T) {
	svc := newTestService()

	_, err := svc.RefreshAccessToken(context.Background(), "not-a-token")

	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestService_ValidateAccessToken(t *testing.T) {
	svc := newTestService()
	registered := register(t, svc, "farmer@example.com")

	farmerID, err := svc.ValidateAccessToken(registered.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, registered.Farmer.ID, farmerID)
}

func TestService_RevokeAllTokens(t *testing.T) {
	svc := newTestService()
	registered := register(t, svc, "farmer@example.com")

	loggedIn, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "farmer@example.com",
		Password: "plant-more-trees",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllTokens(context.Background(), registered.Farmer.ID))

	_, err = svc.RefreshAccessToken(context.Background(), registered.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = svc.RefreshAccessToken(context.Background(), loggedIn.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
