package model

import "errors"

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCredentials covers both unknown email and wrong
	// password so responses cannot be used for email enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken covers not-found, expired, and
	// already-rotated tokens with a single signal.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrMissingCredential is returned when no credential was
	// presented at all (no cookie on the request).
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidToken is the codec's single failure signal for bad
	// signature, expiry, and audience mismatch alike.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidVerificationToken covers every way a verification
	// token can fail to decode.
	ErrInvalidVerificationToken = errors.New("invalid verification token")

	// ErrUserAlreadyExists is returned when a registration or
	// verification races an existing account for the same email.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrWeakPassword is returned when a registration password fails
	// policy validation.
	ErrWeakPassword = errors.New("password does not meet policy")

	// ErrTemporaryFailure marks storage or transaction errors that
	// are safe for the caller to retry with backoff.
	ErrTemporaryFailure = errors.New("temporary failure")
)
