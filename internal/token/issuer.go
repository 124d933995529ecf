package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avoronin/authd/internal/model"
)

// Issuer mints short-lived access tokens from a user record. The same
// user state can produce any number of independent valid tokens until
// expiry; there is no revocation before natural expiry.
type Issuer struct {
	codec    *Codec
	audience string
	lifetime time.Duration
}

var _ model.TokenIssuer = (*Issuer)(nil)

// NewIssuer creates an access-token issuer scoped to the service
// audience.
func NewIssuer(codec *Codec, audience string, lifetime time.Duration) *Issuer {
	return &Issuer{codec: codec, audience: audience, lifetime: lifetime}
}

// Issue builds access claims from the user record and signs them.
func (i *Issuer) Issue(user model.User) (string, error) {
	return i.codec.Encode(Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID.String()},
		Active:           user.IsVerified,
		Superuser:        user.IsSuperuser,
	}, i.lifetime, i.audience)
}

// Parse validates an access token and extracts its claims.
func (i *Issuer) Parse(tokenString string) (model.AccessClaims, error) {
	claims, err := i.codec.Decode(tokenString, i.audience)
	if err != nil {
		return model.AccessClaims{}, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.AccessClaims{}, model.ErrInvalidToken
	}

	return model.AccessClaims{
		UserID:    userID,
		Active:    claims.Active,
		Superuser: claims.Superuser,
	}, nil
}
