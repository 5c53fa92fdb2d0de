package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/services"
)

type UploadRequest struct {
	FileType string `json:"fileType"`
}

// GetUploadURL signs a direct client upload to Cloudinary.
func (h *Handler) GetUploadURL(c *gin.Context) {
	var input UploadRequest
	if !h.bindJSON(c, &input) {
		return
	}
	if !h.Uploads.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"message":  "Cloud storage not configured. Using local storage.",
			"useLocal": true,
		})
		return
	}
	signed, err := h.Uploads.GenerateSignedUploadURL(services.ParseFileKind(input.FileType))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"uploadUrl":    signed.UploadURL,
		"uploadParams": signed.UploadParams,
		"message":      "Upload URL generated successfully",
	})
}

// UploadFile hands out a placeholder locator when no upload happened.
func (h *Handler) UploadFile(c *gin.Context) {
	var input UploadRequest
	if !h.bindJSON(c, &input) {
		return
	}
	fileType := input.FileType
	if fileType == "" {
		fileType = string(services.KindImage)
	}
	c.JSON(http.StatusOK, gin.H{
		"url":      services.PlaceholderURL(services.ParseFileKind(fileType)),
		"message":  "File uploaded successfully (placeholder)",
		"fileType": fileType,
	})
}
