package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	name        string
	createTable string
	get         string
	upsert      string
	del         string
	keys        string
	count       string
}

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `
	CREATE TABLE IF NOT EXISTS storefront_cache (
		cache_key   TEXT PRIMARY KEY,
		cache_value TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	get: `SELECT cache_value FROM storefront_cache WHERE cache_key = ?`,
	upsert: `
		INSERT INTO storefront_cache (cache_key, cache_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			cache_value = excluded.cache_value,
			updated_at = excluded.updated_at`,
	del:   `DELETE FROM storefront_cache WHERE cache_key = ?`,
	keys:  `SELECT cache_key FROM storefront_cache WHERE cache_key LIKE ? ESCAPE '!' ORDER BY cache_key`,
	count: `SELECT COUNT(*) FROM storefront_cache`,
}

var postgresDialect = dialect{
	name: "postgres",
	createTable: `
	CREATE TABLE IF NOT EXISTS storefront_cache (
		cache_key   TEXT PRIMARY KEY,
		cache_value TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	get: `SELECT cache_value FROM storefront_cache WHERE cache_key = $1`,
	upsert: `
		INSERT INTO storefront_cache (cache_key, cache_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET
			cache_value = EXCLUDED.cache_value,
			updated_at = EXCLUDED.updated_at`,
	del:   `DELETE FROM storefront_cache WHERE cache_key = $1`,
	keys:  `SELECT cache_key FROM storefront_cache WHERE cache_key LIKE $1 ESCAPE '!' ORDER BY cache_key`,
	count: `SELECT COUNT(*) FROM storefront_cache`,
}

var mysqlDialect = dialect{
	name: "mysql",
	createTable: `
	CREATE TABLE IF NOT EXISTS storefront_cache (
		cache_key   VARCHAR(255) NOT NULL PRIMARY KEY,
		cache_value LONGTEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	get: `SELECT cache_value FROM storefront_cache WHERE cache_key = ?`,
	upsert: `
		INSERT INTO storefront_cache (cache_key, cache_value, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			cache_value = VALUES(cache_value),
			updated_at = VALUES(updated_at)`,
	del:   `DELETE FROM storefront_cache WHERE cache_key = ?`,
	keys:  `SELECT cache_key FROM storefront_cache WHERE cache_key LIKE ? ESCAPE '!' ORDER BY cache_key`,
	count: `SELECT COUNT(*) FROM storefront_cache`,
}

// SQLStorage implements Storage on a single database/sql table.
// The same type serves SQLite, PostgreSQL and MySQL through a dialect.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStorage(db *sql.DB, d dialect) (*SQLStorage, error) {
	if _, err := db.Exec(d.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create %s cache table: %w", d.name, err)
	}
	return &SQLStorage{db: db, dialect: d}, nil
}

// Get retrieves a value by key.
func (s *SQLStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return []byte(value), nil
}

// Set inserts or replaces the value stored under key.
func (s *SQLStorage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsert, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes a value by key.
func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.del, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Keys lists stored keys with the given prefix.
func (s *SQLStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.keys, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Len returns the number of stored keys.
func (s *SQLStorage) Len(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, s.dialect.count).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL engine name.
func (s *SQLStorage) Dialect() string {
	return s.dialect.name
}

// likePrefix builds a LIKE pattern matching prefix literally, using '!' as
// the escape character.
func likePrefix(prefix string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(prefix) + "%"
}

var _ Storage = (*SQLStorage)(nil)
