package token

import (
	"time"

	"github.com/avoronin/authd/internal/model"
)

// VerificationAudience scopes registration verification tokens to the
// one consumer allowed to redeem them.
const VerificationAudience = "authd:verify"

// Verifier encodes a pending registration into a signed token and
// decodes it back on confirmation.
type Verifier struct {
	codec    *Codec
	lifetime time.Duration
}

var _ model.VerificationCodec = (*Verifier)(nil)

// NewVerifier creates a verification-token codec with the configured
// verification lifetime.
func NewVerifier(codec *Codec, lifetime time.Duration) *Verifier {
	return &Verifier{codec: codec, lifetime: lifetime}
}

// Encode wraps the candidate user record in a signed token.
func (v *Verifier) Encode(claims model.VerificationClaims) (string, error) {
	return v.codec.Encode(Claims{
		Email:  claims.Email,
		Digest: claims.PasswordDigest,
	}, v.lifetime, VerificationAudience)
}

// Decode validates the token against the verification audience and
// returns the pending record.
func (v *Verifier) Decode(tokenString string) (model.VerificationClaims, error) {
	claims, err := v.codec.Decode(tokenString, VerificationAudience)
	if err != nil {
		return model.VerificationClaims{}, err
	}
	return model.VerificationClaims{
		Email:          claims.Email,
		PasswordDigest: claims.Digest,
	}, nil
}
