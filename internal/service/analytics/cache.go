package analytics

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache caches summary reports in Redis, keyed by the full
// filter set. Cache failures degrade to a miss; analytics must keep
// working when Redis is down.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps a Redis client as a summary cache. A nil client
// yields a cache that always misses.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{client: client, ttl: ttl}
}

func summaryKey(key string) string {
	return "analytics:summary:" + key
}

func (c *RedisCache) GetSummary(ctx context.Context, key string) (*SummaryReport, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, summaryKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Analytics] cache read failed: %v", err)
		}
		return nil, false
	}
	var report SummaryReport
	if err := json.Unmarshal(raw, &report); err != nil {
		log.Printf("[Analytics] cache entry corrupt, dropping: %v", err)
		c.client.Del(ctx, summaryKey(key))
		return nil, false
	}
	return &report, true
}

func (c *RedisCache) SetSummary(ctx context.Context, key string, report *SummaryReport) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(key), raw, c.ttl).Err(); err != nil {
		log.Printf("[Analytics] cache write failed: %v", err)
	}
}

// nopCache is the fallback when no Redis is configured.
type nopCache struct{}

func (nopCache) GetSummary(context.Context, string) (*SummaryReport, bool) { return nil, false }
func (nopCache) SetSummary(context.Context, string, *SummaryReport)       {}
