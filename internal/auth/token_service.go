package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"workhub_backend/internal/config"
	"workhub_backend/internal/shared"
)

// JWTTokenService implements shared.TokenService with HMAC-signed tokens.
type JWTTokenService struct {
	secretKey          []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	issuer             string
}

// NewJWTTokenService creates a new JWTTokenService from application config.
func NewJWTTokenService(cfg *config.Config) *JWTTokenService {
	return &JWTTokenService{
		secretKey:          []byte(cfg.JWTSecretKey),
		accessTokenExpiry:  cfg.JWTAccessTokenExpiry,
		refreshTokenExpiry: cfg.JWTRefreshTokenExpiry,
		issuer:             cfg.JWTIssuer,
	}
}

// GenerateAccessToken creates a signed access token for the given user.
func (s *JWTTokenService) GenerateAccessToken(userData shared.UserDataForToken) (string, time.Time, error) {
	return s.generate(userData, s.accessTokenExpiry)
}

// GenerateRefreshToken creates a signed refresh token for the given user.
func (s *JWTTokenService) GenerateRefreshToken(userData shared.UserDataForToken) (string, time.Time, error) {
	return s.generate(userData, s.refreshTokenExpiry)
}

func (s *JWTTokenService) generate(userData shared.UserDataForToken, expiry time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiry)
	claims := &shared.Claims{
		UserID: userData.GetID(),
		Email:  userData.GetEmail(),
		Role:   userData.GetRole(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userData.GetID().String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a token string, returning its claims.
func (s *JWTTokenService) ValidateToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
