package maincache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/entitycore"
)

func TestMirrorStats_PublishesStatisticsSnapshotToRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	c := New[account](Config{MaxEntries: 10, EvictionPolicy: LRU})
	c.Insert(uuid.New(), account{})
	_, _ = c.Get(entitycore.PrimaryKey(uuid.New())) // miss

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go MirrorStats(ctx, c, client, "maincache:accounts:stats", 5*time.Millisecond)

	require.Eventually(t, func() bool {
		raw, err := client.Get(context.Background(), "maincache:accounts:stats").Result()
		if err != nil {
			return false
		}
		var s Statistics
		if json.Unmarshal([]byte(raw), &s) != nil {
			return false
		}
		return s.Size == 1 && s.Misses == 1
	}, time.Second, 5*time.Millisecond, "stats were never mirrored to redis")
}

func TestMirrorStats_NoopWithNilCacheOrClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Must return promptly instead of blocking forever on a nil
	// cache/client.
	done := make(chan struct{})
	go func() {
		MirrorStats[account](ctx, nil, nil, "k", time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("MirrorStats did not return for a nil cache/client")
	}
	assert.True(t, true)
}
