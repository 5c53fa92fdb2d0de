package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	corsHeaders = []string{"Content-Type", "Authorization", "Cookie", "X-Requested-With", "Accept", "Origin", "User-Agent"}
)

const corsMaxAge = 24 * time.Hour

// CORS echoes allow-listed origins with credentials and answers every other
// origin with a wildcard. Preflight requests end here with 204.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	valid := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://") {
			allowed[o] = true
			valid = append(valid, o)
		}
	}

	var listed gin.HandlerFunc
	if len(valid) > 0 {
		listed = cors.New(cors.Config{
			AllowOrigins:              valid,
			AllowMethods:              corsMethods,
			AllowHeaders:              corsHeaders,
			AllowCredentials:          true,
			MaxAge:                    corsMaxAge,
			OptionsResponseStatusCode: http.StatusNoContent,
		})
	}

	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")
	maxAge := "86400"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Max-Age", maxAge)
		h.Add("Vary", "Origin")
		h.Set("X-Content-Type-Options", "nosniff")

		origin := c.GetHeader("Origin")
		if listed != nil && allowed[origin] {
			listed(c)
			if c.IsAborted() {
				return
			}
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
