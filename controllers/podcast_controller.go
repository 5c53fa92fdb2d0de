package controllers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/podstream-backend/config"
	"github.com/vnkhanh/podstream-backend/middleware"
	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/services"
)

type AddPodcastInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	FrontImageURL string   `json:"frontImageUrl"`
	AudioFileURL  string   `json:"audioFileUrl"`
	Tags          []string `json:"tags"`
}

// AddPodcast accepts JSON with already uploaded locators, or a multipart form
// carrying the frontImage and audioFile files.
func (h *Handler) AddPodcast(c *gin.Context) {
	var in services.CreatePodcastInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if !h.podcastFromForm(c, &in) {
			return
		}
	} else {
		var body AddPodcastInput
		if !h.bindJSON(c, &body) {
			return
		}
		in = services.CreatePodcastInput{
			Title:       body.Title,
			Description: body.Description,
			Category:    body.Category,
			FrontImage:  body.FrontImageURL,
			AudioFile:   body.AudioFileURL,
			Tags:        body.Tags,
		}
	}

	podcast, err := h.Catalog.CreatePodcast(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Podcast added successfully",
		"podcast": gin.H{
			"id":          podcast.ID,
			"title":       podcast.Title,
			"description": podcast.Description,
			"frontImage":  podcast.FrontImage,
			"audioFile":   podcast.AudioFile,
		},
	})
}

func (h *Handler) podcastFromForm(c *gin.Context, in *services.CreatePodcastInput) bool {
	form, err := c.MultipartForm()
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			middleware.PayloadTooLarge(c)
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid multipart form"})
		}
		return false
	}
	*in = services.CreatePodcastInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		FrontImage:  c.PostForm("frontImageUrl"),
		AudioFile:   c.PostForm("audioFileUrl"),
		Tags:        formTags(form.Value["tags"]),
	}
	// Reject bad input before spending time on uploads.
	if err := services.ValidateCreate(*in); err != nil {
		h.respondError(c, err)
		return false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.UploadTimeout)
	defer cancel()

	if fh := firstFile(form, "frontImage"); fh != nil {
		res, err := h.uploadFormFile(ctx, c, fh, services.KindImage)
		if err != nil {
			h.respondError(c, err)
			return false
		}
		in.FrontImage = res.URL
		in.FrontImageMetadata = res.Metadata()
	}
	if fh := firstFile(form, "audioFile"); fh != nil {
		res, err := h.uploadFormFile(ctx, c, fh, services.KindAudio)
		if err != nil {
			h.respondError(c, err)
			return false
		}
		in.AudioFile = res.URL
		in.AudioFileMetadata = res.Metadata()
		in.Duration = res.Duration
		in.FileSize = res.Size
	}
	return true
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if files := form.File[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}

// formTags accepts repeated tags fields as well as one comma separated value.
func formTags(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func (h *Handler) uploadFormFile(ctx context.Context, c *gin.Context, fh *multipart.FileHeader, kind services.FileKind) (*services.UploadResult, error) {
	dir := h.Config.TempUploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Internal("File upload failed", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, tmp); err != nil {
		return nil, services.Internal("File upload failed", err)
	}
	return h.Uploads.UploadFromLocalPath(ctx, tmp, fh.Filename, kind)
}

func (h *Handler) GetPodcasts(c *gin.Context) {
	page, limit := services.ParsePagination(c.Query("page"), c.Query("limit"))
	result, err := h.Catalog.ListPodcasts(c.Request.Context(), services.ListQuery{
		Page:      page,
		Limit:     limit,
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
		Legacy:    c.Query("visibility") == "legacy",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        result.Items,
		"totalPages":  result.TotalPages,
		"currentPage": result.CurrentPage,
		"total":       result.Total,
	})
}

func (h *Handler) GetPodcast(c *gin.Context) {
	podcast, err := h.Catalog.GetPodcast(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": podcast})
}

func (h *Handler) GetCategoryPodcasts(c *gin.Context) {
	groups, err := h.Catalog.ListByCategory(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}

func (h *Handler) GetUserPodcasts(c *gin.Context) {
	podcasts, err := h.Catalog.ListByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if podcasts == nil {
		podcasts = []models.PodcastView{}
	}
	c.JSON(http.StatusOK, gin.H{"data": podcasts})
}
