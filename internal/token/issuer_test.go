package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronin/authd/internal/model"
)

func TestIssuer_Roundtrip(t *testing.T) {
	codec := NewCodec("secret")
	issuer := NewIssuer(codec, "authd:auth", 15*time.Minute)

	user := model.User{ID: uuid.New(), IsVerified: true, IsSuperuser: true}

	access, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := issuer.Parse(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.Active)
	assert.True(t, claims.Superuser)
}

func TestIssuer_UnverifiedUserIsInactive(t *testing.T) {
	issuer := NewIssuer(NewCodec("secret"), "authd:auth", 15*time.Minute)

	access, err := issuer.Issue(model.User{ID: uuid.New(), IsVerified: false})
	require.NoError(t, err)

	claims, err := issuer.Parse(access)
	require.NoError(t, err)
	assert.False(t, claims.Active)
	assert.False(t, claims.Superuser)
}

func TestIssuer_ExpiredToken(t *testing.T) {
	issuer := NewIssuer(NewCodec("secret"), "authd:auth", -time.Second)

	access, err := issuer.Issue(model.User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = issuer.Parse(access)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestIssuer_RejectsVerificationToken(t *testing.T) {
	codec := NewCodec("secret")
	issuer := NewIssuer(codec, "authd:auth", 15*time.Minute)
	verifier := NewVerifier(codec, 15*time.Minute)

	verification, err := verifier.Encode(model.VerificationClaims{Email: "a@x.com", PasswordDigest: "d"})
	require.NoError(t, err)

	_, err = issuer.Parse(verification)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifier_Roundtrip(t *testing.T) {
	verifier := NewVerifier(NewCodec("secret"), 15*time.Minute)

	encoded, err := verifier.Encode(model.VerificationClaims{Email: "a@x.com", PasswordDigest: "digest"})
	require.NoError(t, err)

	claims, err := verifier.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "digest", claims.PasswordDigest)
}

func TestVerifier_RejectsAccessToken(t *testing.T) {
	codec := NewCodec("secret")
	issuer := NewIssuer(codec, "authd:auth", 15*time.Minute)
	verifier := NewVerifier(codec, 15*time.Minute)

	access, err := issuer.Issue(model.User{ID: uuid.New(), IsVerified: true})
	require.NoError(t, err)

	_, err = verifier.Decode(access)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}
