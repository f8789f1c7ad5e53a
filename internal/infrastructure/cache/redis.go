package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"privacyguard-lab/internal/config"
	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/pkg/logger"
)

// RedisCache wraps the Redis client with typed operations
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
}

// NewRedis creates a new Redis client
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	log = log.WithComponent("redis")
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Msg("connected to Redis successfully")

	return NewWithClient(client, cfg.KeyPrefix, log), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, keyPrefix string, log *logger.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    log,
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.client.Close()
}

// Ping checks connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// key prepends the namespace prefix to a key
func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// GetJSON retrieves and unmarshals a JSON value from cache
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Cache key constants
const (
	KeyAnalysisPrefix  = "cache:analysis:"
	KeyRateLimitPrefix = "rate_limit:"
	KeyTierCounters    = "stats:tiers"
)

// AnalysisKey returns the cache key for a snapshot fingerprint
func AnalysisKey(fingerprint string) string {
	return KeyAnalysisPrefix + fingerprint
}

// GetAnalysis returns the cached analysis for a fingerprint, or nil on a miss
func (c *RedisCache) GetAnalysis(ctx context.Context, fingerprint string) (*models.AppAnalysis, error) {
	var a models.AppAnalysis
	if err := c.GetJSON(ctx, AnalysisKey(fingerprint), &a); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached analysis: %w", err)
	}
	return &a, nil
}

// SetAnalysis caches an analysis and bumps the per-tier counter
func (c *RedisCache) SetAnalysis(ctx context.Context, fingerprint string, a *models.AppAnalysis, ttl time.Duration) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(AnalysisKey(fingerprint)), data, ttl)
	pipe.HIncrBy(ctx, c.key(KeyTierCounters), string(a.Result.RiskTier), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// TierCounters returns how many fresh analyses landed in each tier
func (c *RedisCache) TierCounters(ctx context.Context) (map[models.RiskTier]int64, error) {
	raw, err := c.client.HGetAll(ctx, c.key(KeyTierCounters)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[models.RiskTier]int64, len(raw))
	for tier, v := range raw {
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			continue
		}
		out[models.RiskTier(tier)] = n
	}
	return out, nil
}

// CheckRateLimit checks and increments the rate limit counter
// Returns (allowed, remaining, resetTime, error)
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	now := time.Now()
	windowKey := fmt.Sprintf("%s%s:%d", KeyRateLimitPrefix, key, now.Unix()/int64(window.Seconds()))

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, c.key(windowKey))
	pipe.Expire(ctx, c.key(windowKey), window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	count := incr.Val()
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetTime := now.Add(window)

	return count <= limit, remaining, resetTime, nil
}
