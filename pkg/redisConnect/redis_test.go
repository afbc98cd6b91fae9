package redisconnect

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/config"
)

func TestConnectRedis_PingsServerOnConnect(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := ConnectRedis(config.RedisConfig{Host: srv.Host(), Port: srv.Port()})
	require.NoError(t, err)
	require.NotNil(t, client)

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	val, err := client.Get(ctx, "k").Result()
	require.NoError(t, err)
	require.Equal(t, "v", val)
}

func TestConnectRedis_FailsWhenServerUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	srv.Close()

	_, err := ConnectRedis(config.RedisConfig{Host: srv.Host(), Port: srv.Port()})
	require.Error(t, err)
}
