// Package router assembles the HTTP route table.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/avoronin/authd/internal/api/http/cookie"
	"github.com/avoronin/authd/internal/api/http/handler"
	"github.com/avoronin/authd/internal/api/http/middleware"
	"github.com/avoronin/authd/internal/logger"
	"github.com/avoronin/authd/internal/model"
)

// New builds the gin engine with all auth routes mounted.
func New(
	h *handler.Handler,
	cookies *cookie.Transport,
	issuer model.TokenIssuer,
	log *logger.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Logging(log))

	engine.GET("/health", h.Health)

	auth := engine.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.POST("/register", h.Register)
		auth.GET("/verify", h.Verify)
		auth.POST("/verify", h.Verify)

		auth.GET("/oauth/google", h.OAuthStart)
		auth.GET("/oauth/callback", h.OAuthCallback)

		auth.GET("/me", middleware.Authenticate(cookies, issuer), h.Me)
	}

	return engine
}
