package repository

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

const dashboardKey = "library:stats:dashboard"

type StatsCache interface {
	Get(ctx context.Context) (model.DashboardStats, bool)
	Set(ctx context.Context, stats model.DashboardStats)
}

type statsCache struct {
	client *goredis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewStatsCache returns a cache that never hits when client is nil.
func NewStatsCache(client *goredis.Client, ttl time.Duration, log *zap.Logger) *statsCache {
	return &statsCache{
		client: client,
		ttl:    ttl,
		log:    log.Named("cache"),
	}
}

func (c *statsCache) Get(ctx context.Context) (model.DashboardStats, bool) {
	if c.client == nil {
		return model.DashboardStats{}, false
	}
	data, err := c.client.Get(ctx, dashboardKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("cache get", zap.Error(err))
		}
		return model.DashboardStats{}, false
	}
	var stats model.DashboardStats
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &stats); err != nil {
		c.log.Warn("cache decode", zap.Error(err))
		return model.DashboardStats{}, false
	}
	return stats, true
}

func (c *statsCache) Set(ctx context.Context, stats model.DashboardStats) {
	if c.client == nil {
		return
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(stats)
	if err != nil {
		c.log.Warn("cache encode", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, dashboardKey, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache set", zap.Error(err))
	}
}
