package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/services"
)

// RequireDatabase connects the store on first use and answers 503 while it
// cannot be reached.
func RequireDatabase(src services.StoreSource, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := src.Ensure(c.Request.Context()); err != nil {
			log.WithError(err).Error("database connection failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Database connection failed",
				"message": "Service temporarily unavailable. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
