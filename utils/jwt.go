package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"beccrm/config"
)

// Token types carried in the "type" claim. Refresh tokens cannot be used
// on authenticated endpoints.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthClaims are the JWT claims issued at login.
type AuthClaims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(config.AppConfig.JWTSecret)
}

// GenerateAccessToken creates a short-lived access token for a user.
func GenerateAccessToken(userID uuid.UUID, email, role string) (string, error) {
	ttl := time.Duration(config.AppConfig.JWTAccessTTLMin) * time.Minute
	return signToken(AuthClaims{
		Email:     email,
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

// GenerateRefreshToken creates a long-lived refresh token.
func GenerateRefreshToken(userID uuid.UUID) (string, error) {
	ttl := time.Duration(config.AppConfig.JWTRefreshTTLDays) * 24 * time.Hour
	return signToken(AuthClaims{
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

func signToken(claims AuthClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// VerifyToken parses a token and checks its signature, expiry and type.
func VerifyToken(tokenString, tokenType string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
