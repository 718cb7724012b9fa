package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/minsukim/fitlog-backend/internal/platform/envutil"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
)

// TokenCache is the liveness store for refresh tokens: key = token string,
// value = owning user id, expiry = refresh TTL. A refresh token absent from
// this cache is revoked no matter what its signature says.
type TokenCache interface {
	Set(ctx context.Context, token, userID string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, bool, error)
	// Del reports whether the key existed; the refresh rotation race is
	// arbitrated on that count, so exactly one concurrent caller wins.
	Del(ctx context.Context, token string) (bool, error)
	Close() error
}

type tokenCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewTokenCache(log *logger.Logger) (TokenCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(envutil.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	password := envutil.GetEnv("REDIS_PASSWORD", "", log)
	// Live refresh tokens get their own logical database; db 0 stays
	// reserved for the general-purpose cache.
	sessionDB := envutil.GetEnvAsInt("REDIS_SESSION_DB", 1, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          sessionDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &tokenCache{
		log: log.With("service", "RedisTokenCache"),
		rdb: rdb,
	}, nil
}

func (c *tokenCache) Set(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := c.rdb.SetEx(ctx, token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (c *tokenCache) Get(ctx context.Context, token string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, token).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read refresh token: %w", err)
	}
	return val, true, nil
}

func (c *tokenCache) Del(ctx context.Context, token string) (bool, error) {
	n, err := c.rdb.Del(ctx, token).Result()
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	return n > 0, nil
}

func (c *tokenCache) Close() error {
	return c.rdb.Close()
}
