package cache

import "context"

// Storage is a persistent key-value store for serialized cache entries.
// Backends know nothing about expiry; ExpiringCache layers that on top.
type Storage interface {
	// Get returns the stored bytes for key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every stored key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Len returns the number of stored keys.
	Len(ctx context.Context) (int64, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrNotFound indicates the key was never stored.
	ErrNotFound CacheError = "cache: key not found"
)
