package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avoronin/authd/internal/model"
)

// Claims is the signed payload shared by every token this service
// produces. Access tokens use Active/Superuser, verification tokens
// use Email/Digest; unused fields are omitted from the wire form.
type Claims struct {
	jwt.RegisteredClaims
	Active    bool   `json:"active,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
	Email     string `json:"email,omitempty"`
	Digest    string `json:"digest,omitempty"`
}

// Codec signs and verifies compact claims with a symmetric secret.
// It is a pure function of its key and inputs; all decode failures
// (signature, expiry, audience) collapse into model.ErrInvalidToken so
// callers never learn why a token was rejected.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec around the process-wide signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode stamps issue and expiry times plus the audience tag and signs
// the claims with HMAC-SHA256.
func (c *Codec) Encode(claims Claims, lifetime time.Duration, audience string) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(lifetime))
	claims.Audience = jwt.ClaimStrings{audience}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, expiry, and audience. The expected
// audience is mandatory: every consumer checks the purpose tag, so a
// verification token can never be replayed as an access token.
func (c *Codec) Decode(tokenString, expectedAudience string) (Claims, error) {
	if expectedAudience == "" {
		return Claims{}, model.ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithAudience(expectedAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, model.ErrInvalidToken
	}

	return *claims, nil
}
