package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/config"
)

// HealthCheck serves / and /api/v1/health. It answers 503 while the store is
// unreachable.
func (h *Handler) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status":            "ok",
		"message":           "Podstream API is running!",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"env":               h.Config.AppEnv,
		"mongo_uri_exists":  h.Config.MongoURI != "",
		"jwt_secret_exists": h.Config.JWTSecret != "",
		"db":                "ok",
	}
	if h.Hub != nil {
		response["websocket"] = gin.H{"enabled": true, "stats": h.Hub.GetStats()}
	}

	status := http.StatusOK
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.HealthPingBudget)
		defer cancel()
		if err := h.DB.Health(ctx); err != nil {
			h.Log.WithError(err).Warn("health check: store unreachable")
			response["db"] = "error: cannot connect to DB"
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, response)
}
