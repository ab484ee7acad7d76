// Package handlers binds the HTTP surface to the service layer. Handlers do
// request decoding and response shaping only; rules live in the services.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "harmony/internal/errors"
	"harmony/internal/service/user"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	users *user.Service
}

// NewAuthHandler creates an auth handler over the user service.
func NewAuthHandler(users *user.Service) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var in user.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, svcErr.Validation("invalid request body"))
		return
	}

	profile, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, svcErr.Validation("invalid request body"))
		return
	}

	token, profile, err := h.users.Login(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": profile})
}
