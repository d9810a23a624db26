package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore is a Redis-backed cache store, useful when several scraper
// instances share one cache. Entries are written without a TTL to match the
// never-invalidated contract of the filesystem store.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Redis cache connected")
	return &RedisStore{client: client, prefix: "sumo:cache:"}, nil
}

// Get reads the entry for key, if present.
func (s *RedisStore) Get(key string) ([]byte, bool) {
	data, err := s.client.Get(context.Background(), s.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set writes the entry for key.
func (s *RedisStore) Set(key string, value []byte) error {
	if err := s.client.Set(context.Background(), s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
