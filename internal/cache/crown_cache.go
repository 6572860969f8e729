package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const crownKey = "crown:public"

// CrownCache holds the public crown view between settlements
type CrownCache interface {
	// Get returns the cached view; ok is false on a miss.
	Get(ctx context.Context) (crown *models.PublicCrown, ok bool, err error)
	Set(ctx context.Context, crown *models.PublicCrown) error
	Invalidate(ctx context.Context) error
}

// RedisConfig holds connection parameters for the Redis client
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
}

// NewRedisClient creates a client and pings it
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// RedisCrownCache stores the public crown view as JSON under one key
type RedisCrownCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCrownCache creates a RedisCrownCache
func NewRedisCrownCache(rdb *redis.Client, ttl time.Duration) *RedisCrownCache {
	return &RedisCrownCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCrownCache) Get(ctx context.Context) (*models.PublicCrown, bool, error) {
	data, err := c.rdb.Get(ctx, crownKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get crown: %w", err)
	}
	var crown models.PublicCrown
	if err := json.Unmarshal(data, &crown); err != nil {
		return nil, false, fmt.Errorf("redis: unmarshal crown: %w", err)
	}
	return &crown, true, nil
}

func (c *RedisCrownCache) Set(ctx context.Context, crown *models.PublicCrown) error {
	data, err := json.Marshal(crown)
	if err != nil {
		return fmt.Errorf("redis: marshal crown: %w", err)
	}
	if err := c.rdb.Set(ctx, crownKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set crown: %w", err)
	}
	return nil
}

func (c *RedisCrownCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, crownKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate crown: %w", err)
	}
	return nil
}

// Noop never caches; used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context) (*models.PublicCrown, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, *models.PublicCrown) error         { return nil }
func (Noop) Invalidate(context.Context) error                       { return nil }

var (
	_ CrownCache = (*RedisCrownCache)(nil)
	_ CrownCache = Noop{}
)
