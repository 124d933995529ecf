package model

import "github.com/google/uuid"

// TokenIssuer mints and validates stateless access tokens.
type TokenIssuer interface {
	Issue(user User) (string, error)
	Parse(token string) (AccessClaims, error)
}

// AccessClaims is the decoded content of an access token. Validity is
// determined purely by signature and expiry at parse time; nothing is
// looked up server-side.
type AccessClaims struct {
	UserID    uuid.UUID
	Active    bool
	Superuser bool
}

// VerificationCodec carries a pending registration through a signed
// token instead of a database row.
type VerificationCodec interface {
	Encode(claims VerificationClaims) (string, error)
	Decode(token string) (VerificationClaims, error)
}

// VerificationClaims is the entire candidate user record for a pending
// registration. The store never holds unverified users.
type VerificationClaims struct {
	Email          string
	PasswordDigest string
}
