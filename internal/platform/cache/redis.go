package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
)

// StatusCache shields gateways from client poll storms by caching status
// lookups for a short TTL. A nil *StatusCache is a no-op: lookups miss and
// writes are dropped, so callers never branch on whether redis is wired.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.SugaredLogger
}

const statusTTL = 3 * time.Second

func New(lc fx.Lifecycle, cfg *cfgpkg.Config, log *zap.SugaredLogger) *StatusCache {
	if cfg.Redis.Addr == "" {
		log.Infow("status cache disabled, no redis addr configured")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	log.Infow("status cache enabled", "addr", cfg.Redis.Addr)
	return &StatusCache{rdb: rdb, ttl: statusTTL, log: log}
}

func (c *StatusCache) key(transactionID string) string {
	return "pixpay:status:" + transactionID
}

// Get returns the cached status payload for a transaction, or "" on miss.
// Cache errors count as misses.
func (c *StatusCache) Get(ctx context.Context, transactionID string) string {
	if c == nil {
		return ""
	}
	v, err := c.rdb.Get(ctx, c.key(transactionID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnw("status cache get failed", "err", err)
		}
		return ""
	}
	return v
}

// Set stores a status payload; failures are logged and dropped.
func (c *StatusCache) Set(ctx context.Context, transactionID, payload string) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(transactionID), payload, c.ttl).Err(); err != nil {
		c.log.Warnw("status cache set failed", "err", err)
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
