package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/minsukim/fitlog-backend/internal/db"
	apphttp "github.com/minsukim/fitlog-backend/internal/http"
	"github.com/minsukim/fitlog-backend/internal/http/handlers"
	"github.com/minsukim/fitlog-backend/internal/http/middleware"
	"github.com/minsukim/fitlog-backend/internal/platform/envutil"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
	"github.com/minsukim/fitlog-backend/internal/repos"
	"github.com/minsukim/fitlog-backend/internal/services"
)

type App struct {
	Log    *logger.Logger
	Config Config
	Router *gin.Engine

	pg      *db.PostgresService
	clients Clients
}

func New() (*App, error) {
	log, err := logger.New(envutil.GetEnv("LOG_MODE", "development", nil))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	clients, err := wireClients(log)
	if err != nil {
		return nil, err
	}

	tokenService, err := services.NewTokenService(
		log,
		clients.TokenCache,
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	verifier, err := services.NewOAuthVerifier(nil, log, cfg.GoogleClientID, cfg.AppleClientID)
	if err != nil {
		return nil, fmt.Errorf("init oauth verifier: %w", err)
	}

	userRepo := repos.NewUserRepo(pg.DB(), log)
	userService := services.NewUserService(pg.DB(), log, userRepo)
	authService := services.NewAuthService(log, userService, tokenService, verifier)

	router := apphttp.NewRouter(apphttp.RouterConfig{
		Log:            log,
		Production:     cfg.Production,
		HealthHandler:  handlers.NewHealthHandler(),
		AuthHandler:    handlers.NewAuthHandler(authService, cfg.RefreshTokenTTL, cfg.Production),
		OAuthHandler:   handlers.NewOAuthHandler(authService, cfg.RefreshTokenTTL, cfg.Production),
		UserHandler:    handlers.NewUserHandler(userService),
		AuthMiddleware: middleware.NewAuthMiddleware(log, tokenService),
	})

	return &App{
		Log:     log,
		Config:  cfg,
		Router:  router,
		pg:      pg,
		clients: clients,
	}, nil
}

func (a *App) Run() error {
	addr := ":" + a.Config.Port
	a.Log.Info("Starting HTTP server", "addr", addr)
	return a.Router.Run(addr)
}

func (a *App) Close() {
	a.clients.Close()
	if a.pg != nil {
		a.pg.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
