package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/qaforum/config"
)

var (
	rdb     *redis.Client
	rdbOnce sync.Once
)

func newRedis(cfg config.AppConfig) *redis.Client {
	if cfg.RedisHost == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     20,
	})
}

// GetRedis returns the shared client, or nil when REDIS_HOST is empty. Nil means every
// cache and the token blacklist fall back to local state.
func GetRedis() *redis.Client {
	rdbOnce.Do(func() { rdb = newRedis(config.Get()) })
	return rdb
}

// PingRedis reports whether the configured redis answers. No redis counts as healthy.
func PingRedis(ctx context.Context) error {
	rc := GetRedis()
	if rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rc.Ping(ctx).Err()
}

// CloseRedis releases the pool on shutdown.
func CloseRedis() {
	if rc := GetRedis(); rc != nil {
		_ = rc.Close()
	}
}
