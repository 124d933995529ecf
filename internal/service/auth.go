package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/avoronin/authd/internal/logger"
	"github.com/avoronin/authd/internal/model"
	"github.com/avoronin/authd/internal/oauth"
	"github.com/avoronin/authd/internal/password"
)

// Session is the result of a successful authentication: a stateless
// access token plus the server-tracked refresh credential.
type Session struct {
	AccessToken  string
	RefreshToken model.RefreshToken
	User         model.User
}

// Auth orchestrates credential checks, token issuance, and refresh
// rotation. All collaborators arrive as constructor dependencies.
type Auth struct {
	users         model.UserStore
	refreshTokens model.RefreshTokenStore
	issuer        model.TokenIssuer
	exchanger     oauth.Exchanger
	logger        *logger.Logger
}

func NewAuth(
	users model.UserStore,
	refreshTokens model.RefreshTokenStore,
	issuer model.TokenIssuer,
	exchanger oauth.Exchanger,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		users:         users,
		refreshTokens: refreshTokens,
		issuer:        issuer,
		exchanger:     exchanger,
		logger:        logger,
	}
}

// Login verifies the email/password pair and starts a session. Unknown
// email, wrong password, and an inactive account all produce the same
// ErrInvalidCredentials so the response cannot be used to enumerate
// registered addresses.
func (a *Auth) Login(ctx context.Context, email, plaintext string) (Session, error) {
	a.logger.Debug("Auth service: processing login", "email", email)

	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	ok, err := password.Verify(plaintext, user.PasswordDigest)
	if err != nil || !ok {
		return Session{}, model.ErrInvalidCredentials
	}

	if !user.IsActive {
		return Session{}, model.ErrInvalidCredentials
	}

	session, err := a.startSession(ctx, user)
	if err != nil {
		return Session{}, err
	}

	a.logger.Info("Auth service: login completed", "user_id", user.ID)
	return session, nil
}

// Refresh redeems a refresh token for a new session. Rotation is
// exactly-once: the store consumes the presented token and issues its
// successor atomically, so a replay always fails.
func (a *Auth) Refresh(ctx context.Context, presented string) (Session, error) {
	userID, next, err := a.refreshTokens.Rotate(ctx, presented)
	if err != nil {
		return Session{}, err
	}

	user, err := a.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		// Owner deleted since the token was issued.
		return Session{}, model.ErrInvalidRefreshToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get token owner: %w", err)
	}

	access, err := a.issuer.Issue(user)
	if err != nil {
		return Session{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	a.logger.Info("Auth service: refresh completed", "user_id", user.ID)
	return Session{AccessToken: access, RefreshToken: next, User: user}, nil
}

// User loads the account behind an authenticated request.
func (a *Auth) User(ctx context.Context, id uuid.UUID) (model.User, error) {
	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Logout revokes the presented refresh token. Revoking an absent token
// succeeds; the access token simply runs out its short lifetime.
func (a *Auth) Logout(ctx context.Context, presented string) error {
	if err := a.refreshTokens.Revoke(ctx, presented); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// LoginWithOAuth redeems a provider authorization code and starts a
// session for the provider-vouched identity, creating the account on
// first login. The provider has already verified the address, so the
// user is created verified.
func (a *Auth) LoginWithOAuth(ctx context.Context, code string) (Session, error) {
	identity, err := a.exchanger.Exchange(ctx, code)
	if err != nil {
		a.logger.Info("Auth service: oauth exchange rejected", "error", err.Error())
		return Session{}, model.ErrInvalidCredentials
	}

	user, err := a.users.GetByEmail(ctx, identity.Email)
	if errors.Is(err, model.ErrNotFound) {
		user, err = a.createOAuthUser(ctx, identity)
	}
	if err != nil {
		return Session{}, err
	}

	if !user.IsActive {
		return Session{}, model.ErrInvalidCredentials
	}

	session, err := a.startSession(ctx, user)
	if err != nil {
		return Session{}, err
	}

	a.logger.Info("Auth service: oauth login completed", "user_id", user.ID, "provider_account", identity.ProviderAccountID)
	return session, nil
}

func (a *Auth) startSession(ctx context.Context, user model.User) (Session, error) {
	access, err := a.issuer.Issue(user)
	if err != nil {
		return Session{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := a.refreshTokens.Create(ctx, user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (a *Auth) createOAuthUser(ctx context.Context, identity oauth.Identity) (model.User, error) {
	// The account has no usable password until the user sets one; an
	// unguessable digest keeps the password login path closed.
	digest, err := password.Hash(randomSecret())
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	user, err := a.users.Create(ctx, model.User{
		Email:          identity.Email,
		PasswordDigest: digest,
		IsActive:       true,
		IsVerified:     true,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create oauth user: %w", err)
	}
	return user, nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
