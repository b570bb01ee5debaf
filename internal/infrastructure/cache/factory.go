package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apppayplan "github.com/insurance/payplan/internal/application/payplan"
	"github.com/insurance/payplan/internal/infrastructure/config"
)

// ScheduleCacheFactory creates schedule caches based on configuration
type ScheduleCacheFactory struct {
	cacheConfig           config.CacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ScheduleCacheFactoryOption is a functional option for configuring the factory
type ScheduleCacheFactoryOption func(*ScheduleCacheFactory)

// WithLogger sets the logger for the factory and the caches it builds
func WithLogger(logger *zap.Logger) ScheduleCacheFactoryOption {
	return func(f *ScheduleCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) ScheduleCacheFactoryOption {
	return func(f *ScheduleCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewScheduleCacheFactory creates a new factory
func NewScheduleCacheFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...ScheduleCacheFactoryOption) *ScheduleCacheFactory {
	f := &ScheduleCacheFactory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Cache is a schedule cache the caller must close on shutdown
type Cache interface {
	apppayplan.ScheduleCache
	Close() error
}

// Pinger is implemented by caches backed by a remote server
type Pinger interface {
	Ping(ctx context.Context) error
}

type noopCache struct {
	apppayplan.NoopScheduleCache
}

func (noopCache) Close() error { return nil }

// CreateCache builds the configured cache. A disabled cache yields a no-op
// cache; a Redis backend that cannot be reached falls back to memory when allowed.
func (f *ScheduleCacheFactory) CreateCache() (Cache, error) {
	if !f.cacheConfig.Enabled {
		f.logger.Info("Schedule cache disabled")
		return noopCache{}, nil
	}

	if f.cacheConfig.Backend != "redis" {
		f.logger.Info("Using in-memory schedule cache", zap.Duration("ttl", f.cacheConfig.TTL))
		return NewInMemoryScheduleCache(f.cacheConfig.TTL, f.logger), nil
	}

	redisCache, err := NewRedisScheduleCache(f.redisConfig, f.cacheConfig.TTL, f.logger)
	if err == nil {
		f.logger.Info("Using Redis schedule cache",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Duration("ttl", f.cacheConfig.TTL),
		)
		return redisCache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis schedule cache unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory schedule cache. "+
		"Instances will not share invalidations.",
		zap.Error(err),
	)
	return NewInMemoryScheduleCache(f.cacheConfig.TTL, f.logger), nil
}
