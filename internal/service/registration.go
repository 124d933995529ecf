package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/avoronin/authd/internal/logger"
	"github.com/avoronin/authd/internal/mailer"
	"github.com/avoronin/authd/internal/model"
	"github.com/avoronin/authd/internal/password"
)

const minPasswordLength = 8

// Registration implements stateless deferred registration: the whole
// candidate user record travels inside a signed token, and no row is
// written until the token comes back verified. There are no unverified
// accounts to sweep.
type Registration struct {
	users   model.UserStore
	codec   model.VerificationCodec
	sender  mailer.Sender
	baseURL string
	logger  *logger.Logger
}

func NewRegistration(
	users model.UserStore,
	codec model.VerificationCodec,
	sender mailer.Sender,
	baseURL string,
	logger *logger.Logger,
) *Registration {
	return &Registration{
		users:   users,
		codec:   codec,
		sender:  sender,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Begin validates the candidate registration, seals it into a signed
// token, and mails the verification link. The store is not touched.
func (r *Registration) Begin(ctx context.Context, email, plaintext string) error {
	r.logger.Debug("Registration service: starting registration", "email", email)

	if len(plaintext) < minPasswordLength {
		return model.ErrWeakPassword
	}

	_, err := r.users.GetByEmail(ctx, email)
	if err == nil {
		return model.ErrUserAlreadyExists
	}
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	digest, err := password.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := r.codec.Encode(model.VerificationClaims{Email: email, PasswordDigest: digest})
	if err != nil {
		return fmt.Errorf("failed to encode verification token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/verify?token=%s", r.baseURL, url.QueryEscape(token))
	body := fmt.Sprintf("Follow the link to finish creating your account:\n\n%s\n\nIf you did not request this, ignore this message.", link)

	if err := r.sender.Send(ctx, email, "Verify your account", body); err != nil {
		return fmt.Errorf("failed to send verification mail: %w", err)
	}

	r.logger.Info("Registration service: verification mail sent", "email", email)
	return nil
}

// Complete redeems a verification token and materializes the user.
// The email is re-checked because a second token for the same address
// may have been redeemed in the meantime; the store's unique index
// backs the check, so two concurrent completions cannot both insert.
func (r *Registration) Complete(ctx context.Context, token string) (model.User, error) {
	claims, err := r.codec.Decode(token)
	if err != nil {
		return model.User{}, model.ErrInvalidVerificationToken
	}
	if claims.Email == "" || claims.PasswordDigest == "" {
		return model.User{}, model.ErrInvalidVerificationToken
	}

	_, err = r.users.GetByEmail(ctx, claims.Email)
	if err == nil {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	user, err := r.users.Create(ctx, model.User{
		Email:          claims.Email,
		PasswordDigest: claims.PasswordDigest,
		IsActive:       true,
		IsVerified:     true,
	})
	if err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, model.ErrUserAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Info("Registration service: user verified and created", "user_id", user.ID, "email", user.Email)
	return user, nil
}
