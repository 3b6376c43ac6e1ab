package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a shared cache tier backed by Redis
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisStoreConfig holds Redis store configuration
type RedisStoreConfig struct {
	RedisURL  string
	KeyPrefix string
	// OpTimeout bounds each dial/read/write; defaults to 2s
	OpTimeout time.Duration
}

// NewRedisStore creates a new Redis store. The connection is established
// lazily; an unreachable server surfaces as errors on Get/Set.
func NewRedisStore(cfg *RedisStoreConfig) (*RedisStore, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "pdfocr:result:"
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 2 * time.Second
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.DialTimeout = cfg.OpTimeout
	opt.ReadTimeout = cfg.OpTimeout
	opt.WriteTimeout = cfg.OpTimeout
	opt.MaxRetries = 0

	return &RedisStore{
		client:    redis.NewClient(opt),
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Name identifies the store
func (s *RedisStore) Name() string { return "redis" }

// Get returns the stored bytes or ErrCacheMiss
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores value under key; ttl 0 means no expiry
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
