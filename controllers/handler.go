// Package controllers holds the gin handlers of the HTTP API.
package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/config"
	"github.com/vnkhanh/podstream-backend/middleware"
	"github.com/vnkhanh/podstream-backend/services"
	"github.com/vnkhanh/podstream-backend/utils"
	"github.com/vnkhanh/podstream-backend/ws"
)

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Handler struct {
	Auth      *services.AuthService
	Catalog   *services.CatalogService
	Accounts  *services.AccountService
	Analytics *services.AnalyticsService
	Uploads   *services.UploadService
	DB        HealthChecker
	Hub       *ws.Hub
	Config    config.Config
	Log       *logrus.Entry
}

// respondError writes err as {message}. Server errors also carry the cause
// and are logged and reported.
func (h *Handler) respondError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		middleware.PayloadTooLarge(c)
		return
	}
	kind := services.KindOf(err)
	status := kind.HTTPStatus()
	msg := services.MessageOf(err, "Internal server error")
	if status < http.StatusInternalServerError {
		c.JSON(status, gin.H{"message": msg})
		return
	}

	_ = c.Error(err)
	h.Log.WithError(err).WithFields(logrus.Fields{
		"path": c.FullPath(),
		"kind": kind.String(),
	}).Error("request failed")
	if kind != services.KindUnavailable {
		utils.CaptureError(err, map[string]string{"path": c.FullPath(), "kind": kind.String()})
	}

	body := gin.H{"message": msg}
	var se *services.Error
	if errors.As(err, &se) && se.Err != nil {
		body["error"] = se.Err.Error()
	}
	c.JSON(status, body)
}

// bindJSON decodes the body into dst. An empty body leaves dst untouched.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		if middleware.IsBodyTooLarge(err) {
			middleware.PayloadTooLarge(c)
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return false
	}
	return true
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.SessionCookie, token, int(utils.SessionTTL/time.Second), "/", "", h.Config.IsProduction(), true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.Config.IsProduction(), true)
}
