package database

import (
	"github.com/BradenHooton/warden/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the shared state client. Commands honour the
// caller's context deadline, so a hung server cannot stall a request past
// the limiter's backend timeout.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		ContextTimeoutEnabled: true,
	})
}
