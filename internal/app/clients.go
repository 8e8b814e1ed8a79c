package app

import (
	"fmt"

	"github.com/arcpp/proteome-backend/internal/cache"
	"github.com/arcpp/proteome-backend/internal/clients/redis"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type Clients struct {
	// Redis is nil when the cache tier is disabled.
	Redis *redis.KV
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR empty; cache tier disabled, listings read the store")
		return Clients{}, nil
	}
	kv, err := redis.NewKV(redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis kv: %w", err)
	}
	return Clients{Redis: kv}, nil
}

// SummaryCache returns nil when the cache tier is disabled.
func (c Clients) SummaryCache(log *logger.Logger, batchSize int) *cache.SummaryCache {
	if c.Redis == nil {
		return nil
	}
	return cache.NewSummaryCache(c.Redis, log, batchSize)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
