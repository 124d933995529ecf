// Package oauth encapsulates outbound HTTP calls to external identity
// providers. Only the authorization-code exchange is modeled; the rest
// of the provider handshake happens in the user's browser.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avoronin/authd/internal/config"
)

// Identity is the provider-vouched result of a code exchange.
type Identity struct {
	Email             string
	ProviderAccountID string
}

// Exchanger redeems an authorization code for a verified identity.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (Identity, error)
}

const (
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
)

// Google implements the code exchange against Google's OpenID Connect
// endpoints.
type Google struct {
	cfg        config.OAuth
	httpClient *http.Client

	tokenURL    string
	userInfoURL string
}

var _ Exchanger = (*Google)(nil)

// NewGoogle constructs the Google exchanger. A nil client gets a
// timeout-bounded default.
func NewGoogle(cfg config.OAuth, client *http.Client) *Google {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Google{
		cfg:         cfg,
		httpClient:  client,
		tokenURL:    googleTokenURL,
		userInfoURL: googleUserInfoURL,
	}
}

// AuthURL builds the consent-screen URL the client is redirected to.
func (g *Google) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email")
	q.Set("state", state)
	return googleAuthURL + "?" + q.Encode()
}

// Exchange redeems the authorization code and loads the user's profile
// from the userinfo endpoint.
func (g *Google) Exchange(ctx context.Context, code string) (Identity, error) {
	accessToken, err := g.exchangeCode(ctx, code)
	if err != nil {
		return Identity{}, err
	}
	return g.fetchIdentity(ctx, accessToken)
}

func (g *Google) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", g.cfg.RedirectURL)
	data.Set("client_id", g.cfg.ClientID)
	data.Set("client_secret", g.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("token exchange failed: status=%d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}
	return token.AccessToken, nil
}

func (g *Google) fetchIdentity(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode >= 300 {
		return Identity{}, fmt.Errorf("userinfo failed: status=%d", resp.StatusCode)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return Identity{}, fmt.Errorf("userinfo missing subject or email")
	}
	if !info.EmailVerified {
		return Identity{}, fmt.Errorf("provider email is not verified")
	}

	return Identity{Email: info.Email, ProviderAccountID: info.Sub}, nil
}
