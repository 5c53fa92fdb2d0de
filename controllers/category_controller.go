package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCategories lists active categories by name.
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}
