package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/minsukim/fitlog-backend/internal/http/handlers"
	httpMW "github.com/minsukim/fitlog-backend/internal/http/middleware"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log        *logger.Logger
	Production bool

	HealthHandler *httpH.HealthHandler
	AuthHandler   *httpH.AuthHandler
	OAuthHandler  *httpH.OAuthHandler
	UserHandler   *httpH.UserHandler

	AuthMiddleware *httpMW.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.ErrorHandler(cfg.Log, cfg.Production))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Auth (public; refresh and logout authenticate with the cookie, not a
	// bearer token, so an expired access token never blocks them)
	if cfg.AuthHandler != nil {
		auth := r.Group("/auth")
		auth.POST("/register", cfg.AuthHandler.Register)
		auth.POST("/login", cfg.AuthHandler.Login)
		auth.POST("/refresh", cfg.AuthHandler.Refresh)
		auth.POST("/logout", cfg.AuthHandler.Logout)
	}

	// OAuth (public)
	if cfg.OAuthHandler != nil {
		oauth := r.Group("/oauth")
		oauth.POST("/googleLogin", cfg.OAuthHandler.GoogleLogin)
		oauth.POST("/appleLogin", cfg.OAuthHandler.AppleLogin)
	}

	// Protected
	protected := r.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	if cfg.UserHandler != nil {
		protected.GET("/user", cfg.UserHandler.GetMe)
	}

	return r
}
