package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore defines persistence operations for refresh tokens.
// A token row exists only while the token is valid: rotation deletes
// the presented row and inserts its successor in one transaction, so
// presence is the validity signal and there is no "used" flag.
type RefreshTokenStore interface {
	Create(ctx context.Context, userID uuid.UUID) (RefreshToken, error)
	Rotate(ctx context.Context, presented string) (uuid.UUID, RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

// RefreshToken is a single-use session-continuation credential tracked
// server-side. Token is an opaque random string, never a signed claim.
type RefreshToken struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
