// Package cookie moves session credentials between the service and the
// browser. Tokens live only in HttpOnly cookies; response bodies never
// carry them.
package cookie

import (
	"net/http"
	"time"

	"github.com/avoronin/authd/internal/config"
	"github.com/avoronin/authd/internal/model"
)

// Transport writes and reads the access and refresh cookies. The
// refresh cookie is scoped to the refresh endpoint path so the browser
// does not attach the long-lived credential to every request.
type Transport struct {
	accessName  string
	refreshName string
	refreshPath string
	accessTTL   time.Duration
	secure      bool
}

func NewTransport(cfg config.Cookie, accessTTL time.Duration) *Transport {
	return &Transport{
		accessName:  cfg.AccessName,
		refreshName: cfg.RefreshName,
		refreshPath: cfg.RefreshPath,
		accessTTL:   accessTTL,
		secure:      cfg.Secure,
	}
}

// SetSession writes both session cookies. Cookie lifetimes mirror the
// token lifetimes so the browser drops a credential when it expires.
func (t *Transport) SetSession(w http.ResponseWriter, accessToken string, refresh model.RefreshToken) {
	http.SetCookie(w, t.accessCookie(accessToken, int(t.accessTTL.Seconds())))

	refreshTTL := int(time.Until(refresh.ExpiresAt).Seconds())
	http.SetCookie(w, t.refreshCookie(refresh.Token, refreshTTL))
}

// SetAccess writes only the access cookie. Used where no refresh
// credential is minted.
func (t *Transport) SetAccess(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, t.accessCookie(accessToken, int(t.accessTTL.Seconds())))
}

// Clear expires both cookies. MaxAge -1 emits Max-Age=0, which makes
// the browser delete them immediately.
func (t *Transport) Clear(w http.ResponseWriter) {
	access := t.accessCookie("", 0)
	access.MaxAge = -1
	http.SetCookie(w, access)

	refresh := t.refreshCookie("", 0)
	refresh.MaxAge = -1
	http.SetCookie(w, refresh)
}

// ReadAccess returns the access token from the request cookies, or
// ErrMissingCredential when the cookie is absent.
func (t *Transport) ReadAccess(r *http.Request) (string, error) {
	c, err := r.Cookie(t.accessName)
	if err != nil || c.Value == "" {
		return "", model.ErrMissingCredential
	}
	return c.Value, nil
}

// ReadRefresh returns the refresh token from the request cookies, or
// ErrMissingCredential when the cookie is absent.
func (t *Transport) ReadRefresh(r *http.Request) (string, error) {
	c, err := r.Cookie(t.refreshName)
	if err != nil || c.Value == "" {
		return "", model.ErrMissingCredential
	}
	return c.Value, nil
}

func (t *Transport) accessCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     t.accessName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (t *Transport) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     t.refreshName,
		Value:    value,
		Path:     t.refreshPath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
