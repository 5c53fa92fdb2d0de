package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/middleware"
	"github.com/vnkhanh/podstream-backend/models"
)

type PreferencesInput struct {
	Theme              *string `json:"theme"`
	Language           *string `json:"language"`
	EmailNotifications *bool   `json:"emailNotifications"`
	PushNotifications  *bool   `json:"pushNotifications"`
}

type ProfileInput struct {
	FirstName   *string           `json:"firstName"`
	LastName    *string           `json:"lastName"`
	Bio         *string           `json:"bio"`
	Website     *string           `json:"website"`
	Location    *string           `json:"location"`
	DateOfBirth *string           `json:"dateOfBirth"`
	Preferences *PreferencesInput `json:"preferences"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.Accounts.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var input ProfileInput
	if !h.bindJSON(c, &input) {
		return
	}
	upd := models.ProfileUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Bio:       input.Bio,
		Website:   input.Website,
		Location:  input.Location,
	}
	if input.DateOfBirth != nil && *input.DateOfBirth != "" {
		dob, ok := parseDate(*input.DateOfBirth)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid date of birth"})
			return
		}
		upd.DateOfBirth = &dob
	}

	if p := input.Preferences; p != nil {
		upd.Preferences = &models.PreferencesUpdate{
			Language:           p.Language,
			EmailNotifications: p.EmailNotifications,
			PushNotifications:  p.PushNotifications,
		}
		if p.Theme != nil {
			theme := models.Theme(*p.Theme)
			upd.Preferences.Theme = &theme
		}
	}

	user, err := h.Accounts.UpdateProfile(c.Request.Context(), middleware.UserID(c), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

func (h *Handler) FollowUser(c *gin.Context) {
	following, err := h.Accounts.ToggleFollow(c.Request.Context(), middleware.UserID(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	msg := "User unfollowed"
	if following {
		msg = "User followed"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "following": following})
}

func (h *Handler) UserAnalytics(c *gin.Context) {
	out, err := h.Accounts.UserAnalytics(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
