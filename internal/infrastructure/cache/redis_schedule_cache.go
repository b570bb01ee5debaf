package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apppayplan "github.com/insurance/payplan/internal/application/payplan"
	"github.com/insurance/payplan/internal/infrastructure/config"
)

// DefaultScheduleKeyPrefix namespaces schedule keys in a shared Redis
const DefaultScheduleKeyPrefix = "payplan:schedule:"

// RedisScheduleCache implements ScheduleCache on Redis so several service
// instances see the same invalidations.
type RedisScheduleCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisScheduleCache connects to Redis and verifies the connection
func NewRedisScheduleCache(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisScheduleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisScheduleCacheWithClient(client, "", ttl, logger), nil
}

// NewRedisScheduleCacheWithClient wraps an existing client.
// An empty keyPrefix selects DefaultScheduleKeyPrefix.
func NewRedisScheduleCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisScheduleCache {
	if keyPrefix == "" {
		keyPrefix = DefaultScheduleKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisScheduleCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *RedisScheduleCache) key(subjectID uuid.UUID) string {
	return c.keyPrefix + subjectID.String()
}

// Get loads and decodes the subject's schedule. Redis errors count as misses.
func (c *RedisScheduleCache) Get(ctx context.Context, subjectID uuid.UUID) (*apppayplan.CachedSchedule, bool) {
	data, err := c.client.Get(ctx, c.key(subjectID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Schedule cache read failed",
				zap.String("subject_id", subjectID.String()),
				zap.Error(err),
			)
		}
		return nil, false
	}

	var schedule apppayplan.CachedSchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		c.logger.Warn("Discarding undecodable cached schedule",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
		c.Invalidate(ctx, subjectID)
		return nil, false
	}
	return &schedule, true
}

// Set stores the schedule with the configured TTL
func (c *RedisScheduleCache) Set(ctx context.Context, subjectID uuid.UUID, schedule *apppayplan.CachedSchedule) {
	data, err := json.Marshal(schedule)
	if err != nil {
		c.logger.Warn("Failed to encode schedule for cache",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
		return
	}
	if err := c.client.Set(ctx, c.key(subjectID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Schedule cache write failed",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
	}
}

// Invalidate deletes the subject's key
func (c *RedisScheduleCache) Invalidate(ctx context.Context, subjectID uuid.UUID) {
	if err := c.client.Del(ctx, c.key(subjectID)).Err(); err != nil {
		c.logger.Warn("Schedule cache invalidation failed",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
	}
}

// Ping checks the Redis connection, for health checks
func (c *RedisScheduleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisScheduleCache) Close() error {
	return c.client.Close()
}

var _ apppayplan.ScheduleCache = (*RedisScheduleCache)(nil)
