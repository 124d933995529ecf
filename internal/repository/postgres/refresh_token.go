package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avoronin/authd/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

// tokenEntropyBytes gives token strings 256 bits of entropy.
const tokenEntropyBytes = 32

type RefreshTokenRepository struct {
	db  *Connection
	ttl time.Duration
}

func NewRefreshTokenRepository(db *Connection, ttl time.Duration) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db, ttl: ttl}
}

// Create generates a fresh opaque token string and persists its row.
func (r *RefreshTokenRepository) Create(ctx context.Context, userID uuid.UUID) (model.RefreshToken, error) {
	const query = `
        INSERT INTO refresh_tokens (token, user_id, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING token, user_id, expires_at, created_at, updated_at
    `

	token, err := newTokenString()
	if err != nil {
		return model.RefreshToken{}, err
	}

	var rt model.RefreshToken
	err = r.db.QueryRow(ctx, query, token, userID, time.Now().Add(r.ttl)).Scan(
		&rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return model.RefreshToken{}, storageError("create refresh token", err)
	}
	return rt, nil
}

// Rotate consumes the presented token and issues its successor in a
// single transaction. The row lock serializes concurrent rotations of
// the same token: exactly one caller commits the delete+insert, and
// everyone queued behind it finds the row gone. Expired rows count as
// absent even before any sweeper removes them.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, presented string) (uuid.UUID, model.RefreshToken, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, model.RefreshToken{}, storageError("begin rotation", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
        SELECT user_id FROM refresh_tokens
        WHERE token = $1 AND expires_at > NOW()
        FOR UPDATE
    `, presented).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, model.RefreshToken{}, model.ErrInvalidRefreshToken
		}
		return uuid.Nil, model.RefreshToken{}, storageError("lock refresh token", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, presented); err != nil {
		return uuid.Nil, model.RefreshToken{}, storageError("delete rotated token", err)
	}

	token, err := newTokenString()
	if err != nil {
		return uuid.Nil, model.RefreshToken{}, err
	}

	var next model.RefreshToken
	err = tx.QueryRow(ctx, `
        INSERT INTO refresh_tokens (token, user_id, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING token, user_id, expires_at, created_at, updated_at
    `, token, userID, time.Now().Add(r.ttl)).Scan(
		&next.Token, &next.UserID, &next.ExpiresAt, &next.CreatedAt, &next.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, model.RefreshToken{}, storageError("insert successor token", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, model.RefreshToken{}, storageError("commit rotation", err)
	}

	return userID, next, nil
}

// Revoke deletes the token row. Deleting an absent token is not an
// error, so logout stays idempotent.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return storageError("revoke refresh token", err)
	}
	return nil
}

func newTokenString() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
