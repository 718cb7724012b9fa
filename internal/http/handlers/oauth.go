package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minsukim/fitlog-backend/internal/http/response"
	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/services"
	"github.com/minsukim/fitlog-backend/internal/types"
)

type OAuthHandler struct {
	authService services.AuthService
	refreshTTL  time.Duration
	production  bool
}

func NewOAuthHandler(authService services.AuthService, refreshTTL time.Duration, production bool) *OAuthHandler {
	return &OAuthHandler{
		authService: authService,
		refreshTTL:  refreshTTL,
		production:  production,
	}
}

// POST /oauth/googleLogin
func (oh *OAuthHandler) GoogleLogin(c *gin.Context) {
	oh.login(c, types.ProviderGoogle)
}

// POST /oauth/appleLogin
func (oh *OAuthHandler) AppleLogin(c *gin.Context) {
	oh.login(c, types.ProviderApple)
}

func (oh *OAuthHandler) login(c *gin.Context, provider types.Provider) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		_ = c.Error(apierr.Validation("idToken is required"))
		return
	}

	pair, user, err := oh.authService.LoginOAuth(c.Request.Context(), provider, req.IDToken)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, pair.RefreshToken, int(oh.refreshTTL.Seconds()), "/", "", oh.production, true)

	response.Respond(c, http.StatusOK, gin.H{
		"token":  pair,
		"userId": user.ID,
	})
}
