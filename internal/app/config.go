package app

import (
	"strings"
	"time"

	"github.com/minsukim/fitlog-backend/internal/platform/envutil"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
)

type Config struct {
	Port       string
	Production bool

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	GoogleClientID string
	AppleClientID  string
}

func LoadConfig(log *logger.Logger) Config {
	env := strings.ToLower(envutil.GetEnv("APP_ENV", "development", log))
	return Config{
		Port:             envutil.GetEnv("PORT", "8080", log),
		Production:       env == "prod" || env == "production",
		JWTAccessSecret:  envutil.GetEnv("JWT_ACCESS_SECRET", "", log),
		JWTRefreshSecret: envutil.GetEnv("JWT_REFRESH_SECRET", "", log),
		AccessTokenTTL:   envutil.GetEnvAsSeconds("ACCESS_TOKEN_TTL", time.Hour, log),
		RefreshTokenTTL:  envutil.GetEnvAsSeconds("REFRESH_TOKEN_TTL", 30*24*time.Hour, log),
		GoogleClientID:   envutil.GetEnv("GOOGLE_CLIENT_ID", "", log),
		AppleClientID:    envutil.GetEnv("APPLE_CLIENT_ID", "", log),
	}
}
