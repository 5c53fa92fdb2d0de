package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/services"
)

// RequireRoles allows the request through only for the listed roles. It must
// run after AuthMiddleware.
func RequireRoles(message string, allowedRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get(ContextRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		role, ok := roleValue.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		for _, allowed := range allowedRoles {
			if models.UserRole(role) == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": message})
	}
}

// CanManage reports whether the authenticated actor owns ownerID's resource
// or is an admin.
func CanManage(c *gin.Context, ownerID string) bool {
	return services.CanManage(UserID(c), Role(c), ownerID)
}
