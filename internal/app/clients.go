package app

import (
	"fmt"

	rediscl "github.com/minsukim/fitlog-backend/internal/clients/redis"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
)

type Clients struct {
	TokenCache rediscl.TokenCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// The token cache is load-bearing: without it refresh tokens cannot be
	// revoked, so startup fails rather than degrading.
	cache, err := rediscl.NewTokenCache(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init token cache: %w", err)
	}

	return Clients{TokenCache: cache}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.TokenCache != nil {
		_ = c.TokenCache.Close()
	}
}
