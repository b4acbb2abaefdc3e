package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voxnote/backend/internal/models"
	"github.com/voxnote/backend/pkg/response"
)

const (
	// ContextUserID is the key for the authenticated user's id in gin context.
	ContextUserID = "user_id"
	// ContextUser is the key for the resolved user (password stripped) in gin context.
	ContextUser = "user"
)

// TokenValidator verifies a bearer token and returns its subject user id.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// UserGetter resolves a user id to its record.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth returns a middleware that validates the bearer token, resolves the
// subject to an existing user and places both in the gin context. A token
// whose user no longer exists is rejected the same as an invalid one.
func Auth(tokens TokenValidator, users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "Unauthorized")
			c.Abort()
			return
		}

		userID, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "Token is invalid or expired")
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			response.Unauthorized(c, "Unauthorized, User not found")
			c.Abort()
			return
		}
		user.Password = ""

		c.Set(ContextUserID, userID)
		c.Set(ContextUser, user)
		c.Next()
	}
}
