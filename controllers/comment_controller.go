package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/middleware"
)

type CommentInput struct {
	Text string `json:"text"`
}

func (h *Handler) LikePodcast(c *gin.Context) {
	liked, count, err := h.Catalog.ToggleLike(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	msg := "Podcast unliked"
	if liked {
		msg = "Podcast liked"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "liked": liked, "likeCount": count})
}

func (h *Handler) AddComment(c *gin.Context) {
	var input CommentInput
	if !h.bindJSON(c, &input) {
		return
	}
	comment, err := h.Catalog.AddComment(c.Request.Context(), c.Param("id"), middleware.UserID(c), input.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment added successfully", "comment": comment})
}
