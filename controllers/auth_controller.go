package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/middleware"
	"github.com/vnkhanh/podstream-backend/services"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignUp(c *gin.Context) {
	var input services.RegisterInput
	if !h.bindJSON(c, &input) {
		return
	}
	if _, err := h.Auth.Register(c.Request.Context(), input); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account created"})
}

func (h *Handler) SignIn(c *gin.Context) {
	var input LoginInput
	if !h.bindJSON(c, &input) {
		return
	}
	session, err := h.Auth.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, gin.H{
		"id":       session.User.ID,
		"username": session.User.Username,
		"email":    session.User.Email,
		"role":     session.User.Role,
		"message":  "sign-in successfully",
	})
}

func (h *Handler) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged-out"})
}

// CheckCookie reports whether the request carries a verifiable session.
func (h *Handler) CheckCookie(c *gin.Context) {
	token, err := c.Cookie(middleware.SessionCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusOK, gin.H{"message": false})
		return
	}
	_, err = h.Auth.VerifySession(token)
	c.JSON(http.StatusOK, gin.H{"message": err == nil})
}

func (h *Handler) UserDetails(c *gin.Context) {
	details, err := h.Accounts.Details(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": details})
}
