package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenVerifier validates the bearer tokens the upstream auth provider issues
// to players. This service never mints tokens; it only checks them.
type TokenVerifier interface {
	// ValidateToken validates the provided token string and extracts the claims.
	// Returns the claims containing user information if the token is valid,
	// or an error if validation fails (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the verified identity carried by a player token.
type Claims struct {
	// UserID is the unique identifier of the player the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Email is the player's email address, when the provider includes it.
	Email string `json:"email,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}
