package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minsukim/fitlog-backend/internal/http/response"
	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/services"
)

const refreshCookieName = "refreshToken"

type AuthHandler struct {
	authService services.AuthService
	refreshTTL  time.Duration
	production  bool
}

func NewAuthHandler(authService services.AuthService, refreshTTL time.Duration, production bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		refreshTTL:  refreshTTL,
		production:  production,
	}
}

// POST /auth/register
func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apierr.Validation("invalid request body"))
		return
	}

	user, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Respond(c, http.StatusCreated, gin.H{
		"message": "registered successfully",
		"user":    user.Public(),
	})
}

// POST /auth/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apierr.Validation("invalid request body"))
		return
	}

	pair, _, err := ah.authService.LoginLocal(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ah.setRefreshCookie(c, pair.RefreshToken)
	response.Respond(c, http.StatusOK, gin.H{"token": pair})
}

// POST /auth/refresh
// The credential is the cookie alone; an expired access token must not
// block this route, so it sits outside the bearer middleware.
func (ah *AuthHandler) Refresh(c *gin.Context) {
	oldToken, err := c.Cookie(refreshCookieName)
	if err != nil || oldToken == "" {
		_ = c.Error(apierr.Validation("refresh token is required"))
		return
	}

	pair, err := ah.authService.Refresh(c.Request.Context(), oldToken)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ah.setRefreshCookie(c, pair.RefreshToken)
	response.Respond(c, http.StatusOK, gin.H{"accessToken": pair.AccessToken})
}

// POST /auth/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		_ = c.Error(apierr.Validation("refresh token is required"))
		return
	}

	if err := ah.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		_ = c.Error(err)
		return
	}

	ah.clearRefreshCookie(c)
	response.Respond(c, http.StatusOK, gin.H{"message": "logged out successfully"})
}

func (ah *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, int(ah.refreshTTL.Seconds()), "/", "", ah.production, true)
}

func (ah *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", ah.production, true)
}
