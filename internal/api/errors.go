package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/middleware"
)

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Failures without a domain
// kind are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := statusFor(appErr.Kind)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "request failed", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(status, middleware.ErrorResponse{Error: appErr.Message})
			return
		}
		c.AbortWithStatusJSON(status, middleware.ErrorResponse{Error: appErr.Message, Field: appErr.Field})
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, middleware.ErrorResponse{Error: "not found"})
		return
	}

	_ = c.Error(err)
	slog.ErrorContext(c.Request.Context(), "request failed", "error", err, "path", c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "internal server error"})
}

// bindError reports a request body that failed to bind
func bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorResponse{Error: err.Error()})
}

// pathID parses the :name path parameter. Malformed ids are reported as
// not found.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, middleware.ErrorResponse{Error: "not found"})
		return uuid.Nil, false
	}
	return id, true
}
