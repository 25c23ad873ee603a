package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/foodgram-dev/foodgram/backend/internal/apperr"
	"github.com/foodgram-dev/foodgram/backend/internal/types"
)

const actorKey = "actor"

// TokenValidator is an interface for validating auth tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (types.Actor, error)
}

// AuthMiddleware creates a middleware that requires a valid token
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}

		actor, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortInvalidToken(c, err)
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalAuth resolves the actor when a token is present and lets
// anonymous requests through. A present but invalid token is rejected.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Set(actorKey, types.Anonymous)
			c.Next()
			return
		}

		actor, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortInvalidToken(c, err)
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// Actor returns the actor resolved by the auth middleware, or Anonymous
func Actor(c *gin.Context) types.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(types.Actor); ok {
			return actor
		}
	}
	return types.Anonymous
}

// SetActor stores actor on the request context
func SetActor(c *gin.Context, actor types.Actor) {
	c.Set(actorKey, actor)
}

// bearerToken accepts both "Token <t>" and "Bearer <t>"
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || token == "" {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func abortInvalidToken(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindUnauthenticated {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": appErr.Message})
		return
	}
	slog.ErrorContext(c.Request.Context(), "token validation failed", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// AdminOnly rejects actors without the administrator flag. It must run
// after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Actor(c).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
			return
		}
		c.Next()
	}
}
