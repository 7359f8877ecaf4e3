package handlers

import (
	"errors"
	"net/http"

	"filenet-backend/service"

	"github.com/gin-gonic/gin"
)

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service sentinels onto HTTP statuses. NotFound
// and PermissionDenied are always surfaced; anything unrecognized is a
// storage or database failure reported with its message preserved.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFileNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "File not found")
	case errors.Is(err, service.ErrVersionNotFound):
		respondError(c, http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found")
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrPermissionDenied):
		respondError(c, http.StatusForbidden, "PERMISSION_DENIED", "You do not have permission to perform this action")
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, service.ErrUserExists):
		respondError(c, http.StatusConflict, "USER_EXISTS", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, service.ErrUserInactive):
		respondError(c, http.StatusForbidden, "ACCOUNT_DISABLED", "This account has been deactivated")
	case errors.Is(err, service.ErrUpstreamFailure):
		respondError(c, http.StatusBadGateway, "UPSTREAM_FAILURE", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
