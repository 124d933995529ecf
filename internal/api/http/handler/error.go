package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avoronin/authd/internal/model"
)

// handleError maps service errors onto HTTP statuses. Credential
// failures collapse into a uniform 401 body so responses cannot be used
// to probe which part of a credential was wrong.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidCredentials),
		errors.Is(err, model.ErrInvalidRefreshToken),
		errors.Is(err, model.ErrMissingCredential),
		errors.Is(err, model.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, model.ErrInvalidVerificationToken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid verification token"})
	case errors.Is(err, model.ErrUserAlreadyExists):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
	case errors.Is(err, model.ErrWeakPassword):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "password too short"})
	case errors.Is(err, model.ErrTemporaryFailure):
		h.logger.Error("handler: temporary failure", "error", err.Error())
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	default:
		h.logger.Error("handler: internal error", "error", err.Error())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
