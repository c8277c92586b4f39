package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/formation-admin-api/internal/middleware"
	"github.com/noah-isme/formation-admin-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// viewerTrainerID returns the caller id when the caller teaches, for trainer_assigned flags.
func viewerTrainerID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || !claims.Roles.Has(models.RoleTrainer) {
		return ""
	}
	return claims.UserID
}
