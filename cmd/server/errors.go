package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dating-api/internal/auth"
	"github.com/dating-api/internal/models"
	"github.com/dating-api/internal/photo"
	"github.com/dating-api/internal/storage"
	"github.com/dating-api/internal/users"
)

// respondError maps a service error onto a status and a client-safe
// message. Unexpected errors are attached to the context for the access log
// and never shown to the client.
func respondError(c *gin.Context, err error) {
	status, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
	case errors.Is(err, users.ErrForbidden), errors.Is(err, photo.ErrNotOwned):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusBadRequest, auth.ErrUsernameTaken.Error()
	case errors.Is(err, photo.ErrAlreadyMain):
		return http.StatusBadRequest, photo.ErrAlreadyMain.Error()
	case errors.Is(err, photo.ErrCannotDeleteMain):
		return http.StatusBadRequest, photo.ErrCannotDeleteMain.Error()
	case errors.Is(err, users.ErrAlreadyLiked):
		return http.StatusBadRequest, users.ErrAlreadyLiked.Error()
	case errors.Is(err, users.ErrSelfLike):
		return http.StatusBadRequest, users.ErrSelfLike.Error()
	case errors.Is(err, storage.ErrUpstream):
		return http.StatusBadGateway, storage.ErrUpstream.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondValidation(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
