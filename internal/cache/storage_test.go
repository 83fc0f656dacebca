package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
)

// testStorage runs the behavior every Storage backend must share.
func testStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "products-1-all-name-asc", []byte(`{"value":1}`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set(ctx, "products-1-all-name-asc", []byte(`{"value":2}`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	s.Set(ctx, "products-2-all-name-asc", []byte(`{}`))
	s.Set(ctx, "products_x", []byte(`{}`))
	s.Set(ctx, "session-abc", []byte(`{}`))

	got, err := s.Get(ctx, "products-1-all-name-asc")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != `{"value":2}` {
		t.Fatalf("expected overwritten value, got %s", got)
	}

	keys, err := s.Keys(ctx, "products-")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	want := []string{"products-1-all-name-asc", "products-2-all-name-asc"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	n, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("len failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 keys, got %d", n)
	}

	if err := s.Delete(ctx, "products-1-all-name-asc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.Delete(ctx, "never-stored"); err != nil {
		t.Fatalf("delete of absent key failed: %v", err)
	}
	if _, err := s.Get(ctx, "products-1-all-name-asc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	testStorage(t, s)
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "data", "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	if s.Dialect() != "sqlite" {
		t.Fatalf("unexpected dialect %q", s.Dialect())
	}
	testStorage(t, s)
}

func TestSQLiteStoragePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s.Set(ctx, "k", []byte("v"))
	s.Close()

	s, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected persisted value, got %q err=%v", got, err)
	}
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStorage(RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer s.Close()

	testStorage(t, s)

	if !mr.Exists(DefaultRedisKeyPrefix + "session-abc") {
		t.Fatalf("expected keys to be namespaced with %q", DefaultRedisKeyPrefix)
	}
}

func TestLikePrefix(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"products-", "products-%"},
		{"a_b", "a!_b%"},
		{"100%", "100!%%"},
		{"x!", "x!!%"},
		{"", "%"},
	}
	for _, tt := range tests {
		if got := likePrefix(tt.prefix); got != tt.want {
			t.Errorf("likePrefix(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestGlobEscape(t *testing.T) {
	if got := globEscape(`a*b?[c]\`); got != `a\*b\?\[c\]\\` {
		t.Fatalf("unexpected escape: %s", got)
	}
}
