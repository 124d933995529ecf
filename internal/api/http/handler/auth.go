// Package handler exposes the session-credential operations over HTTP.
// Tokens travel in cookies; JSON bodies carry only user-visible data.
package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avoronin/authd/internal/api/http/cookie"
	"github.com/avoronin/authd/internal/api/http/middleware"
	"github.com/avoronin/authd/internal/logger"
	"github.com/avoronin/authd/internal/model"
	"github.com/avoronin/authd/internal/oauth"
	"github.com/avoronin/authd/internal/service"
)

const stateCookieName = "oauth_state"

// Handler wires the auth and registration services to gin routes.
type Handler struct {
	auth         *service.Auth
	registration *service.Registration
	cookies      *cookie.Transport
	google       *oauth.Google
	logger       *logger.Logger
}

func New(
	auth *service.Auth,
	registration *service.Registration,
	cookies *cookie.Transport,
	google *oauth.Google,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		auth:         auth,
		registration: registration,
		cookies:      cookies,
		google:       google,
		logger:       logger,
	}
}

type userView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

func viewOf(user model.User) userView {
	return userView{
		ID:          user.ID.String(),
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt,
	}
}

// Health reports process liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges an email/password pair for session cookies.
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.cookies.SetSession(c.Writer, session.AccessToken, session.RefreshToken)
	c.JSON(http.StatusOK, viewOf(session.User))
}

// Refresh rotates the refresh cookie and reissues the access cookie.
// The presented token is consumed whether or not a new one is granted.
func (h *Handler) Refresh(c *gin.Context) {
	presented, err := h.cookies.ReadRefresh(c.Request)
	if err != nil {
		h.handleError(c, err)
		return
	}

	session, err := h.auth.Refresh(c.Request.Context(), presented)
	if err != nil {
		// The cookies are wiped only when the presented token is dead.
		// A transient storage failure leaves the still-valid token in
		// place so the client can retry.
		if errors.Is(err, model.ErrInvalidRefreshToken) {
			h.cookies.Clear(c.Writer)
		}
		h.handleError(c, err)
		return
	}

	h.cookies.SetSession(c.Writer, session.AccessToken, session.RefreshToken)
	c.Status(http.StatusNoContent)
}

// Logout revokes the refresh token and expires both cookies. It
// succeeds even when no session is present.
func (h *Handler) Logout(c *gin.Context) {
	if presented, err := h.cookies.ReadRefresh(c.Request); err == nil {
		if err := h.auth.Logout(c.Request.Context(), presented); err != nil {
			h.logger.Error("handler: logout revoke failed", "error", err.Error())
		}
	}

	h.cookies.Clear(c.Writer)
	c.Status(http.StatusNoContent)
}

// Register starts a registration. On success the response is an empty
// 204: no user row exists yet, only the mailed token.
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	if err := h.registration.Begin(c.Request.Context(), req.Email, req.Password); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Verify redeems a verification token and returns the created account.
// The token arrives as a query parameter when the mailed link is
// followed directly, or in a JSON body when a client posts it.
func (h *Handler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.Token
		}
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	user, err := h.registration.Complete(c.Request.Context(), token)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, viewOf(user))
}

// Me returns the account behind the authenticated request.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.handleError(c, model.ErrMissingCredential)
		return
	}

	user, err := h.auth.User(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Valid token for an account that no longer exists.
			err = model.ErrInvalidToken
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, viewOf(user))
}

// OAuthStart redirects the client to the provider's consent screen. The
// state parameter round-trips through a short-lived cookie.
func (h *Handler) OAuthStart(c *gin.Context) {
	state := randomState()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/oauth",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	c.Redirect(http.StatusFound, h.google.AuthURL(state))
}

// OAuthCallback finishes the provider handshake and starts a session.
func (h *Handler) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	stored, err := c.Request.Cookie(stateCookieName)
	if err != nil || stored.Value != state {
		h.handleError(c, model.ErrInvalidCredentials)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookieName,
		Path:     "/auth/oauth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	session, err := h.auth.LoginWithOAuth(c.Request.Context(), code)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.cookies.SetSession(c.Writer, session.AccessToken, session.RefreshToken)
	c.JSON(http.StatusOK, viewOf(session.User))
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
