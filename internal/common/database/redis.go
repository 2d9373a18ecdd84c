// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"microfinance-scoring/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPoolSize = 10
	defaultRedisTimeout  = 3 * time.Second
)

// RedisClient holds the connection used for the score cache and the
// classifier snapshot.
type RedisClient struct {
	Client *redis.Client
}

// RedisOptions maps the configuration onto client options, filling in pool
// and timeout defaults.
func RedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  defaultRedisTimeout,
		WriteTimeout: defaultRedisTimeout,
		PoolSize:     defaultRedisPoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.TimeoutMs > 0 {
		opts.ReadTimeout = config.GetDuration(cfg.TimeoutMs)
		opts.WriteTimeout = opts.ReadTimeout
	}
	if opts.MinIdleConns > opts.PoolSize {
		opts.MinIdleConns = opts.PoolSize
	}
	return opts, nil
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	opts, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisClient{Client: redis.NewClient(opts)}, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// PoolStats reports connection pool usage for the health endpoint.
func (c *RedisClient) PoolStats() map[string]uint32 {
	s := c.Client.PoolStats()
	return map[string]uint32{
		"hits":       s.Hits,
		"misses":     s.Misses,
		"timeouts":   s.Timeouts,
		"totalConns": s.TotalConns,
		"idleConns":  s.IdleConns,
	}
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
