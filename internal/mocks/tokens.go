package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/avoronin/authd/internal/model"
	"github.com/avoronin/authd/internal/oauth"
)

type TokenIssuer struct {
	mock.Mock
}

func (m *TokenIssuer) Issue(user model.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *TokenIssuer) Parse(token string) (model.AccessClaims, error) {
	args := m.Called(token)
	return args.Get(0).(model.AccessClaims), args.Error(1)
}

type VerificationCodec struct {
	mock.Mock
}

func (m *VerificationCodec) Encode(claims model.VerificationClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *VerificationCodec) Decode(token string) (model.VerificationClaims, error) {
	args := m.Called(token)
	return args.Get(0).(model.VerificationClaims), args.Error(1)
}

type Sender struct {
	mock.Mock
}

func (m *Sender) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

type Exchanger struct {
	mock.Mock
}

func (m *Exchanger) Exchange(ctx context.Context, code string) (oauth.Identity, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(oauth.Identity), args.Error(1)
}
