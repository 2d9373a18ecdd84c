package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microfinance-scoring/internal/common/config"
)

func TestRedisOptions(t *testing.T) {
	t.Run("requires an address", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		opts, err := RedisOptions(config.RedisConfig{Address: "localhost:6379"})
		require.NoError(t, err)
		assert.Equal(t, 10, opts.PoolSize)
		assert.Equal(t, 3*time.Second, opts.ReadTimeout)
		assert.Equal(t, 0, opts.MinIdleConns)
	})

	t.Run("overrides", func(t *testing.T) {
		opts, err := RedisOptions(config.RedisConfig{
			Address:      "localhost:6379",
			DB:           2,
			PoolSize:     4,
			MinIdleConns: 9,
			TimeoutMs:    750,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 4, opts.PoolSize)
		assert.Equal(t, 4, opts.MinIdleConns)
		assert.Equal(t, 750*time.Millisecond, opts.WriteTimeout)
	})
}

func TestRedisClient_PingAndStats(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
	assert.Contains(t, c.PoolStats(), "totalConns")

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}
