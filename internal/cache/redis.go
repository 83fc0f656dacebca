package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces every key this service writes.
const DefaultRedisKeyPrefix = "storefront:cache:"

// RedisConfig holds configuration for Redis storage.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStorage implements Storage on plain Redis strings.
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}

	log.Printf("[RedisStorage] Initialized - DB:%d, prefix:%s", cfg.DB, keyPrefix)
	return &RedisStorage{client: client, keyPrefix: keyPrefix}, nil
}

func (s *RedisStorage) redisKey(key string) string {
	return s.keyPrefix + key
}

// Get retrieves a value by key.
func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores value without a Redis-side TTL; expiry lives in the entry.
func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.redisKey(key), value, 0).Err()
}

// Delete removes a value by key.
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.redisKey(key)).Err()
}

// Keys lists stored keys with the given prefix.
func (s *RedisStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := globEscape(s.redisKey(prefix)) + "*"

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Len counts keys under this storage's namespace.
func (s *RedisStorage) Len(ctx context.Context) (int64, error) {
	keys, err := s.Keys(ctx, "")
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

// Ping checks the Redis connection.
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// globEscape quotes the characters Redis MATCH patterns treat specially.
func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

var _ Storage = (*RedisStorage)(nil)
