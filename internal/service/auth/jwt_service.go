package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and validates the HS256 service tokens that guard the
// HTTP API. Every caller is another internal service holding a token minted
// with the shared secret; there are no user accounts or sessions behind it.
type JWTService interface {
	// GenerateToken creates a signed service token for the given caller.
	// Returns the token string or an error if signing fails.
	GenerateToken(ctx context.Context, callerID uuid.UUID) (string, error)

	// ValidateToken checks the token signature and time claims and extracts
	// the embedded claims. Returns ErrExpiredToken, ErrTokenNotYetValid or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carries the validated contents of a service token.
type Claims struct {
	// CallerID identifies the calling service the token was minted for.
	CallerID uuid.UUID `json:"cid,omitempty"`

	// TokenType is always "service"; it prevents tokens minted for other
	// purposes from passing validation here.
	TokenType string `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
