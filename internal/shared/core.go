package shared

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserDataForToken abstracts the user data needed for token generation. The
// notification service never authenticates users itself; it only needs a
// verified identity for row ownership and broadcast-group membership.
type UserDataForToken interface {
	GetID() uuid.UUID
	GetEmail() string
	GetRole() string
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(userData UserDataForToken) (string, time.Time, error)
	GenerateRefreshToken(userData UserDataForToken) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the JWT claims structure.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// TokenUser is a minimal UserDataForToken implementation, used by tests and
// token-minting tools.
type TokenUser struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (u TokenUser) GetID() uuid.UUID { return u.ID }
func (u TokenUser) GetEmail() string { return u.Email }
func (u TokenUser) GetRole() string  { return u.Role }
