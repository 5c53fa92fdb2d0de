package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextBodyLimit holds the body ceiling BodyLimit applied to the request.
const ContextBodyLimit = "body_limit"

// BodyLimit rejects bodies above maxBytes. Routes listed in overrides (by
// gin full path) use their own ceiling instead.
func BodyLimit(maxBytes int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if v, ok := overrides[c.FullPath()]; ok {
			limit = v
		}
		if limit <= 0 {
			c.Next()
			return
		}
		c.Set(ContextBodyLimit, limit)
		if c.Request.ContentLength > limit {
			PayloadTooLarge(c)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// PayloadTooLarge answers 413 quoting the ceiling BodyLimit applied.
func PayloadTooLarge(c *gin.Context) {
	body := gin.H{
		"error":   "Payload Too Large",
		"message": "Request body exceeds the size limit. Please use smaller files or implement cloud storage.",
	}
	if limit := c.GetInt64(ContextBodyLimit); limit > 0 {
		size := FormatBytes(limit)
		body["message"] = "File size exceeds " + size + " limit. Please use smaller files or implement cloud storage."
		body["maxSize"] = size
	}
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, body)
}

// FormatBytes renders n in binary units with at most one decimal, e.g.
// 4718592 as "4.5MB".
func FormatBytes(n int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	s := strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
	return s + units[i]
}

// IsBodyTooLarge reports whether err came from a body cut off by BodyLimit.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
