package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
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

// actorID is the authenticated user id, or empty for anonymous calls.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// canOverride reports whether the caller may submit overrides. Anonymous callers and
// viewers may not.
func canOverride(c *gin.Context) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		return false
	}
	switch claims.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleScheduler:
		return true
	}
	return false
}
