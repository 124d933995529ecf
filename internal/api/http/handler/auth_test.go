package handler_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avoronin/authd/internal/api/http/cookie"
	"github.com/avoronin/authd/internal/api/http/handler"
	"github.com/avoronin/authd/internal/api/http/router"
	"github.com/avoronin/authd/internal/config"
	"github.com/avoronin/authd/internal/mocks"
	"github.com/avoronin/authd/internal/model"
	"github.com/avoronin/authd/internal/oauth"
	"github.com/avoronin/authd/internal/password"
	"github.com/avoronin/authd/internal/service"
	"github.com/avoronin/authd/internal/testutil"
	"github.com/avoronin/authd/internal/token"
)

type fixture struct {
	engine       *gin.Engine
	userStore    *mocks.UserStore
	refreshStore *mocks.RefreshTokenStore
	sender       *mocks.Sender
	exchanger    *mocks.Exchanger
	issuer       *token.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec := token.NewCodec("test-secret")
	issuer := token.NewIssuer(codec, "authd:auth", 15*time.Minute)
	verifier := token.NewVerifier(codec, time.Minute)

	userStore := &mocks.UserStore{}
	refreshStore := &mocks.RefreshTokenStore{}
	sender := &mocks.Sender{}
	exchanger := &mocks.Exchanger{}

	log := testutil.MakeNoopLogger()
	auth := service.NewAuth(userStore, refreshStore, issuer, exchanger, log)
	registration := service.NewRegistration(userStore, verifier, sender, "http://localhost:8080", log)

	cookies := cookie.NewTransport(config.Cookie{
		AccessName:  "access_token",
		RefreshName: "refresh_token",
		RefreshPath: "/auth/refresh",
		Secure:      false,
	}, 15*time.Minute)

	google := oauth.NewGoogle(config.OAuth{
		ClientID:    "client-id",
		RedirectURL: "http://localhost:8080/auth/oauth/callback",
	}, nil)

	h := handler.New(auth, registration, cookies, google, log)

	return &fixture{
		engine:       router.New(h, cookies, issuer, log),
		userStore:    userStore,
		refreshStore: refreshStore,
		sender:       sender,
		exchanger:    exchanger,
		issuer:       issuer,
	}
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandler_Login_SetsSessionCookies(t *testing.T) {
	f := newFixture(t)

	digest, err := password.Hash("long-enough-pw")
	require.NoError(t, err)
	user := model.User{ID: uuid.New(), Email: "a@b.c", PasswordDigest: digest, IsActive: true, IsVerified: true}

	f.userStore.On("GetByEmail", mock.Anything, "a@b.c").Return(user, nil)
	f.refreshStore.On("Create", mock.Anything, user.ID).
		Return(model.RefreshToken{Token: "opaque", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.c","password":"long-enough-pw"}`))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@b.c"`)
	assert.NotContains(t, rec.Body.String(), "opaque", "tokens never appear in response bodies")

	cookies := rec.Result().Cookies()
	access := cookieByName(cookies, "access_token")
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)

	refresh := cookieByName(cookies, "refresh_token")
	require.NotNil(t, refresh)
	assert.Equal(t, "opaque", refresh.Value)
	assert.Equal(t, "/auth/refresh", refresh.Path)
}

func TestHandler_Login_BadCredentials(t *testing.T) {
	f := newFixture(t)

	f.userStore.On("GetByEmail", mock.Anything, "a@b.c").Return(model.User{}, model.ErrNotFound)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.c","password":"whatever-pw"}`))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandler_Login_MissingFields(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.c"}`))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Refresh_RotatesCookies(t *testing.T) {
	f := newFixture(t)

	user := model.User{ID: uuid.New(), Email: "a@b.c", IsActive: true, IsVerified: true}
	next := model.RefreshToken{Token: "next", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}

	f.refreshStore.On("Rotate", mock.Anything, "current").Return(user.ID, next, nil)
	f.userStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "current"})
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	refresh := cookieByName(rec.Result().Cookies(), "refresh_token")
	require.NotNil(t, refresh)
	assert.Equal(t, "next", refresh.Value)
}

func TestHandler_Refresh_NoCookie(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Refresh_ReplayedToken(t *testing.T) {
	f := newFixture(t)

	f.refreshStore.On("Rotate", mock.Anything, "stolen").
		Return(uuid.Nil, model.RefreshToken{}, model.ErrInvalidRefreshToken)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "stolen"})
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Both cookies are expired on a failed refresh.
	access := cookieByName(rec.Result().Cookies(), "access_token")
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
}

func TestHandler_Refresh_StorageFailureKeepsCookies(t *testing.T) {
	f := newFixture(t)

	f.refreshStore.On("Rotate", mock.Anything, "current").
		Return(uuid.Nil, model.RefreshToken{}, fmt.Errorf("begin rotation: %w: connection refused", model.ErrTemporaryFailure))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "current"})
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// The token was never consumed, so the client keeps it and retries.
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandler_Logout(t *testing.T) {
	f := newFixture(t)

	f.refreshStore.On("Revoke", mock.Anything, "current").Return(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "current"})
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	f.refreshStore.AssertCalled(t, "Revoke", mock.Anything, "current")

	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
	}
}

func TestHandler_Logout_WithoutSession(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_Register_NoUserRow(t *testing.T) {
	f := newFixture(t)

	f.userStore.On("GetByEmail", mock.Anything, "new@b.c").Return(model.User{}, model.ErrNotFound)
	f.sender.On("Send", mock.Anything, "new@b.c", mock.Anything, mock.Anything).Return(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"new@b.c","password":"long-enough-pw"}`))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.userStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandler_Register_WeakPassword(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"new@b.c","password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Verify_PostedToken(t *testing.T) {
	f := newFixture(t)

	verifier := token.NewVerifier(token.NewCodec("test-secret"), time.Minute)
	sealed, err := verifier.Encode(model.VerificationClaims{Email: "new@b.c", PasswordDigest: "digest"})
	require.NoError(t, err)

	created := model.User{ID: uuid.New(), Email: "new@b.c", IsActive: true, IsVerified: true}
	f.userStore.On("GetByEmail", mock.Anything, "new@b.c").Return(model.User{}, model.ErrNotFound)
	f.userStore.On("Create", mock.Anything, mock.Anything).Return(created, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify", bytes.NewBufferString(`{"token":"`+sealed+`"}`))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_verified":true`)
}

func TestHandler_Verify_BadToken(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/verify?token=garbage", nil)
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Me_WithAccessCookie(t *testing.T) {
	f := newFixture(t)

	user := model.User{ID: uuid.New(), Email: "a@b.c", IsActive: true, IsVerified: true}
	f.userStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	access, err := f.issuer.Issue(user)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID.String())
}

func TestHandler_Me_WithBearerHeader(t *testing.T) {
	f := newFixture(t)

	user := model.User{ID: uuid.New(), Email: "a@b.c", IsActive: true, IsVerified: true}
	f.userStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	access, err := f.issuer.Issue(user)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Me_Unauthenticated(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandler_OAuthStart_SetsStateCookie(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/google", nil)
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	state := cookieByName(rec.Result().Cookies(), "oauth_state")
	require.NotNil(t, state)
	assert.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "/auth/oauth", state.Path)
	assert.Contains(t, rec.Header().Get("Location"), "state="+state.Value)
}

func TestHandler_OAuthCallback_ExpiresStateCookie(t *testing.T) {
	f := newFixture(t)

	user := model.User{ID: uuid.New(), Email: "a@b.c", IsActive: true, IsVerified: true}
	f.exchanger.On("Exchange", mock.Anything, "code").
		Return(oauth.Identity{Email: "a@b.c", ProviderAccountID: "google-1"}, nil)
	f.userStore.On("GetByEmail", mock.Anything, "a@b.c").Return(user, nil)
	f.refreshStore.On("Create", mock.Anything, user.ID).
		Return(model.RefreshToken{Token: "rt", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=code&state=st", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "st"})
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	state := cookieByName(rec.Result().Cookies(), "oauth_state")
	require.NotNil(t, state)
	assert.Empty(t, state.Value)
	// net/http parses the emitted Max-Age=0 back as -1.
	assert.Equal(t, -1, state.MaxAge)
	// The expiring cookie carries the same attributes it was set with.
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "/auth/oauth", state.Path)
}

func TestHandler_OAuthCallback_StateMismatch(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "st"})
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.exchanger.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
}

func TestHandler_Me_TamperedToken(t *testing.T) {
	f := newFixture(t)

	other := token.NewIssuer(token.NewCodec("other-secret"), "authd:auth", 15*time.Minute)
	access, err := other.Issue(model.User{ID: uuid.New(), IsVerified: true})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
	f.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
