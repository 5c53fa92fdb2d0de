package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/models"
)

// Search matches public podcasts. GET /search?q=&category=&limit=
func (h *Handler) Search(c *gin.Context) {
	q := c.Query("q")
	results, err := h.Catalog.Search(c.Request.Context(), q, c.Query("category"), queryInt(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if results == nil {
		results = []models.PodcastView{}
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "data": results})
}

func (h *Handler) SearchSuggestions(c *gin.Context) {
	q := c.Query("q")
	out, err := h.Catalog.Suggestions(c.Request.Context(), q, queryInt(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "suggestions": out})
}
