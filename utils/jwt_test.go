package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beccrm/config"
)

func setupJWTConfig(t *testing.T) {
	t.Helper()
	config.AppConfig.JWTSecret = "test-signing-secret"
	config.AppConfig.JWTAccessTTLMin = 30
	config.AppConfig.JWTRefreshTTLDays = 7
}

func TestAccessTokenRoundTrip(t *testing.T) {
	setupJWTConfig(t)
	userID := uuid.New()

	token, err := GenerateAccessToken(userID, "admin@example.com", "admin")
	require.NoError(t, err)

	claims, err := VerifyToken(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestRefreshTokenCannotBeUsedAsAccess(t *testing.T) {
	setupJWTConfig(t)

	token, err := GenerateRefreshToken(uuid.New())
	require.NoError(t, err)

	_, err = VerifyToken(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = VerifyToken(token, TokenTypeRefresh)
	assert.NoError(t, err)
}

func TestVerifyTokenRejectsTamperedSecret(t *testing.T) {
	setupJWTConfig(t)

	token, err := GenerateAccessToken(uuid.New(), "staff@example.com", "staff")
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "different-secret"
	_, err = VerifyToken(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	setupJWTConfig(t)

	_, err := VerifyToken("not-a-token", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
