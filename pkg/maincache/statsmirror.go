package maincache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// MirrorStats periodically pushes c's Statistics snapshot to redisClient
// under key, JSON-encoded, so a cross-node dashboard can read aggregate
// hit/miss/eviction/invalidation counts without every node exposing its
// own metrics endpoint. This is an ambient observability mirror, not a
// cache-storage path: MainCache's actual entries never leave the process
// (spec.md §4.3). A publish failure is logged and skipped, never
// retried or escalated — a Redis outage must not affect the cache.
//
// MirrorStats blocks until ctx is done; run it in its own goroutine.
func MirrorStats[T any](ctx context.Context, c *MainCache[T], redisClient *redis.Client, key string, interval time.Duration) {
	if c == nil || redisClient == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publishStats(ctx, c, redisClient, key)
		}
	}
}

func publishStats[T any](ctx context.Context, c *MainCache[T], redisClient *redis.Client, key string) {
	payload, err := json.Marshal(c.Statistics())
	if err != nil {
		log.Printf("[maincache] failed to marshal stats for redis mirror: %v", err)
		return
	}
	if err := redisClient.Set(ctx, key, payload, 0).Err(); err != nil {
		log.Printf("[maincache] failed to mirror stats to redis key %s: %v", key, err)
	}
}
