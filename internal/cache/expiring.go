package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// Entry is the serialized form of a cached value.
// Expiration is an absolute Unix time in milliseconds.
type Entry[T any] struct {
	Value      T     `json:"value"`
	Expiration int64 `json:"expiration"`
}

// ExpiringCache stores values with an absolute expiration in a Storage.
// Expired entries are never removed automatically; Retrieve still returns
// them and callers decide with IsExpired.
type ExpiringCache[T any] struct {
	storage Storage
	now     func() time.Time
}

// NewExpiringCache wraps storage.
func NewExpiringCache[T any](storage Storage) *ExpiringCache[T] {
	return &ExpiringCache[T]{
		storage: storage,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *ExpiringCache[T]) WithClock(now func() time.Time) *ExpiringCache[T] {
	c.now = now
	return c
}

// Storage returns the underlying storage.
func (c *ExpiringCache[T]) Storage() Storage {
	return c.storage
}

// Store persists value under key, expiring ttl from now.
func (c *ExpiringCache[T]) Store(ctx context.Context, key string, value T, ttl time.Duration) error {
	entry := Entry[T]{
		Value:      value,
		Expiration: c.now().Add(ttl).UnixMilli(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	return c.storage.Set(ctx, key, data)
}

// Retrieve returns the entry stored under key, expired or not.
// Returns ErrNotFound if the key was never stored.
func (c *ExpiringCache[T]) Retrieve(ctx context.Context, key string) (*Entry[T], error) {
	data, err := c.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}

	return &entry, nil
}

// IsExpired reports whether now is past the entry's expiration.
func (c *ExpiringCache[T]) IsExpired(entry *Entry[T]) bool {
	return c.now().UnixMilli() > entry.Expiration
}

// Fresh returns the stored value if present and not expired.
// A missing or expired entry is reported as ok == false with a nil error.
func (c *ExpiringCache[T]) Fresh(ctx context.Context, key string) (value T, ok bool, err error) {
	entry, err := c.Retrieve(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return value, false, nil
	}
	if err != nil {
		return value, false, err
	}
	if c.IsExpired(entry) {
		return value, false, nil
	}
	return entry.Value, true, nil
}

// PurgeExpired deletes expired entries whose key starts with prefix.
// Entries that cannot be decoded are deleted too.
func (c *ExpiringCache[T]) PurgeExpired(ctx context.Context, prefix string) (int64, error) {
	keys, err := c.storage.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}

	now := c.now().UnixMilli()
	var purged int64

	for _, key := range keys {
		data, err := c.storage.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return purged, err
		}

		var head struct {
			Expiration int64 `json:"expiration"`
		}
		if err := json.Unmarshal(data, &head); err == nil && now <= head.Expiration {
			continue
		}

		if err := c.storage.Delete(ctx, key); err != nil {
			return purged, err
		}
		purged++
	}

	if purged > 0 {
		log.Printf("[ExpiringCache] Purged %d expired entries (prefix: %q)", purged, prefix)
	}
	return purged, nil
}
