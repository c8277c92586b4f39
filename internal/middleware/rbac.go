package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/formation-admin-api/internal/models"
	appErrors "github.com/noah-isme/formation-admin-api/pkg/errors"
	"github.com/noah-isme/formation-admin-api/pkg/response"
)

// RequireRoles lets the request through when the caller holds at least one of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !claims.Roles.HasAny(roles...) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSelfOrRoles allows a trainer to read its own resources. param names the path
// parameter holding the user id.
func RequireSelfOrRoles(param string, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.UserID != "" && c.Param(param) == claims.UserID {
			c.Next()
			return
		}
		if claims.Roles.HasAny(roles...) {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
