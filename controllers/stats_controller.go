package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/middleware"
)

// queryInt returns the integer query value, or 0 when it is absent or malformed.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *Handler) PlatformAnalytics(c *gin.Context) {
	out, err := h.Analytics.Platform(c.Request.Context(), middleware.Role(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) PodcastAnalytics(c *gin.Context) {
	out, err := h.Analytics.Podcast(c.Request.Context(), c.Param("podcastId"), middleware.UserID(c), middleware.Role(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) TrendingPodcasts(c *gin.Context) {
	period, trending, err := h.Analytics.Trending(c.Request.Context(), c.Query("period"), queryInt(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "trending": trending})
}

func (h *Handler) CategoryAnalytics(c *gin.Context) {
	stats, err := h.Analytics.Categories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": stats})
}
