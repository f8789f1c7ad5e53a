package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/pkg/logger"
)

// unreachableCache points at a port nothing listens on
func unreachableCache(t *testing.T) *RedisCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewWithClient(client, "pg:", logger.NewNop())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeys(t *testing.T) {
	c := NewWithClient(redis.NewClient(&redis.Options{}), "pg:", logger.NewNop())
	defer c.Close()

	if got := AnalysisKey("abc"); got != "cache:analysis:abc" {
		t.Errorf("AnalysisKey = %q", got)
	}
	if got := c.key(AnalysisKey("abc")); got != "pg:cache:analysis:abc" {
		t.Errorf("prefixed key = %q", got)
	}
}

func TestUnreachableRedisReportsErrors(t *testing.T) {
	c := unreachableCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err == nil {
		t.Error("Ping should fail")
	}

	// An outage must not look like a cache miss
	a, err := c.GetAnalysis(ctx, "abc")
	if err == nil || a != nil {
		t.Errorf("GetAnalysis = %v, %v; want error", a, err)
	}

	if err := c.SetAnalysis(ctx, "abc", &models.AppAnalysis{}, time.Minute); err == nil {
		t.Error("SetAnalysis should fail")
	}
	if _, err := c.TierCounters(ctx); err == nil {
		t.Error("TierCounters should fail")
	}
	if _, _, _, err := c.CheckRateLimit(ctx, "client", 10, time.Minute); err == nil {
		t.Error("CheckRateLimit should fail")
	}
}
