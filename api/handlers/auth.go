package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/workforce-ml/internal/auth"
	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/pkg/validation"
)

type AuthHandler struct {
	authService *auth.Service
	creds       auth.Credentials
	secure      bool
}

// NewAuthHandler serves logins for the configured account. secure marks
// the auth cookie HTTPS-only.
func NewAuthHandler(authService *auth.Service, creds auth.Credentials, secure bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		creds:       creds,
		secure:      secure,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.Username = validation.SanitizeString(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authService.Authenticate(h.creds, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.WarnCtxf(c.Request.Context(), "Failed login for %q", req.Username)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	maxAge := int(h.authService.Duration().Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("auth_token", token, maxAge, "/", "", h.secure, true)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: maxAge,
		Username:  req.Username,
	})
}
