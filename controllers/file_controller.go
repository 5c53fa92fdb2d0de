package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/services"
)

func fileNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
}

// resolveUpload maps a request path onto a file under root. It returns false
// for paths escaping root.
func resolveUpload(root, reqPath string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	rel := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+reqPath)), "/"))
	full := filepath.Join(absRoot, rel)
	if full != absRoot && !strings.HasPrefix(full, absRoot+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func isStreamable(contentType string) bool {
	return strings.HasPrefix(contentType, "audio/") || strings.HasPrefix(contentType, "video/")
}

// ServeUpload serves files from the uploads directory. Audio and video honour
// byte ranges.
func (h *Handler) ServeUpload(c *gin.Context) {
	full, ok := resolveUpload(h.Config.UploadsDir, c.Param("path"))
	if !ok {
		fileNotFound(c)
		return
	}
	f, err := os.Open(full)
	if err != nil {
		fileNotFound(c)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		fileNotFound(c)
		return
	}

	contentType := services.ContentType(full)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := c.Writer.Header()
	header.Set("Content-Type", contentType)
	header.Set("Cache-Control", "public, max-age=31536000")
	header.Set("Accept-Ranges", "bytes")
	if !isStreamable(contentType) {
		c.Request.Header.Del("Range")
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
