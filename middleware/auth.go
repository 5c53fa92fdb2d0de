package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/services"
)

// SessionCookie carries the session JWT.
const SessionCookie = "podcasterUserToken"

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// AuthMiddleware requires a valid session cookie for an existing, active
// account and stores the identity in the context.
func AuthMiddleware(auth *services.AuthService, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			log.WithField("path", c.Request.URL.Path).Debug("missing session cookie")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		claims, err := auth.VerifySession(token)
		if err != nil {
			log.WithField("path", c.Request.URL.Path).Debug("invalid session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		// The account may have been removed or deactivated since the token was issued.
		user, err := auth.CurrentAccount(c.Request.Context(), claims.UserID)
		if err != nil {
			kind := services.KindOf(err)
			c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{"message": services.MessageOf(err, "Unauthorized")})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextRole, string(user.Role))
		c.Next()
	}
}

// OptionalAuth attaches the identity of a valid session and never rejects.
func OptionalAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}
		claims, err := auth.VerifySession(token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Role returns the caller's role. Unknown roles count as plain users.
func Role(c *gin.Context) models.UserRole {
	role := models.UserRole(c.GetString(ContextRole))
	if !role.Valid() {
		return models.RoleUser
	}
	return role
}
