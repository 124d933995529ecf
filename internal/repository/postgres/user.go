package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avoronin/authd/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	query := `SELECT id, email, password_digest, is_active, is_superuser, is_verified, created_at, updated_at, deleted_at
			  FROM users WHERE email = $1 AND deleted_at IS NULL`

	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordDigest, &user.IsActive, &user.IsSuperuser, &user.IsVerified,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, storageError("get user by email", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var user model.User
	query := `SELECT id, email, password_digest, is_active, is_superuser, is_verified, created_at, updated_at, deleted_at
			  FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordDigest, &user.IsActive, &user.IsSuperuser, &user.IsVerified,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, storageError("get user by id", err)
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, email, password_digest, is_active, is_superuser, is_verified, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			  RETURNING id, email, password_digest, is_active, is_superuser, is_verified, created_at, updated_at, deleted_at`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	var saved model.User
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordDigest, user.IsActive, user.IsSuperuser, user.IsVerified,
	).Scan(
		&saved.ID, &saved.Email, &saved.PasswordDigest, &saved.IsActive, &saved.IsSuperuser, &saved.IsVerified,
		&saved.CreatedAt, &saved.UpdatedAt, &saved.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.ErrUserAlreadyExists
		}
		return model.User{}, storageError("create user", err)
	}

	return saved, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// storageError marks infrastructure failures as retryable, distinct
// from the credential failures in the error taxonomy.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrTemporaryFailure, err)
}
