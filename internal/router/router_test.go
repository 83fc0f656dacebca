package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bayt-storefront/internal/cache"
	"bayt-storefront/internal/catalog"
	"bayt-storefront/internal/handler"
	"bayt-storefront/internal/middleware"
	"bayt-storefront/internal/model"
	"bayt-storefront/internal/notify"
	"bayt-storefront/internal/service"
	"bayt-storefront/internal/store"
	"bayt-storefront/internal/view"

	"github.com/google/go-cmp/cmp"
)

type upstream struct {
	srv          *httptest.Server
	productHits  atomic.Int32
	categoryHits atomic.Int32
	failProducts atomic.Bool
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		u.productHits.Add(1)
		if u.failProducts.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		category := r.URL.Query().Get("category")
		w.Write([]byte(`{"data":{"products":{"rows":[{"id":1,"name":"` + category + `-item","price":12.5,"category":"` + category + `","image":"https://img/1.png"}],"totalPages":2}}}`))
	})
	mux.HandleFunc("/api/v1/products/categories", func(w http.ResponseWriter, r *http.Request) {
		u.categoryHits.Add(1)
		w.Write([]byte(`{"data":{"categories":["kitchen","garden"]}}`))
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

type testServer struct {
	*httptest.Server
	upstream *upstream
	storage  *cache.MemoryStorage
	registry *view.Registry
}

func newTestServer(t *testing.T) *testServer {
	u := newUpstream(t)
	storage := cache.NewMemoryStorage()
	pages := cache.NewExpiringCache[model.CatalogPage](storage)
	client := catalog.NewClient(u.srv.URL, 5*time.Second)

	registry := view.NewRegistry(func(id string) *view.View {
		return view.New(client, pages, store.New(), notify.NewQueue(id, time.Minute, 3), view.Options{Name: id})
	})
	t.Cleanup(registry.Close)

	jobs := service.NewCleanupScheduler(service.Job{
		Name: service.JobCacheSweep,
		Run:  func(ctx context.Context) (int64, error) { return pages.PurgeExpired(ctx, model.CacheKeyPrefix) },
	})

	r := New(Config{
		Handler:           handler.New("test", storage),
		StorefrontHandler: handler.NewStorefrontHandler(registry, 5*time.Second),
		AdminHandler:      handler.NewAdminHandler(storage, "memory", registry, jobs),
		AdminMiddleware:   middleware.NewLoginKeyMiddleware("secret"),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, upstream: u, storage: storage, registry: registry}
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func do[T any](t *testing.T, method, url, session string, body any, headers ...string) (*http.Response, envelope[T]) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope[T]
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp, env
}

func TestStorefrontFirstLoadAndCacheHit(t *testing.T) {
	s := newTestServer(t)

	resp, env := do[model.ViewState](t, http.MethodGet, s.URL+"/api/v1/storefront?wait=true", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	session := resp.Header.Get(middleware.SessionHeader)
	if session == "" {
		t.Fatalf("expected a session ID")
	}

	state := env.Data
	if state.Loading || len(state.Products) != 1 || state.Products[0].Name != "all-item" {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.TotalPages != 2 {
		t.Fatalf("expected 2 pages, got %d", state.TotalPages)
	}
	if diff := cmp.Diff([]string{"kitchen", "garden"}, state.Categories); diff != "" {
		t.Fatalf("categories (-want +got):\n%s", diff)
	}

	// A new session with the same query hits the shared cache.
	resp, env = do[model.ViewState](t, http.MethodGet, s.URL+"/api/v1/storefront", "", nil)
	if env.Data.Loading || env.Data.Placeholders != 0 || len(env.Data.Products) != 1 {
		t.Fatalf("expected cached rows without placeholders, got %+v", env.Data)
	}
	if resp.Header.Get(middleware.SessionHeader) == session {
		t.Fatalf("expected a different session")
	}
	if n := s.upstream.productHits.Load(); n != 1 {
		t.Fatalf("expected 1 upstream product request, got %d", n)
	}
}

func TestStorefrontUpdateQuery(t *testing.T) {
	s := newTestServer(t)

	resp, _ := do[model.ViewState](t, http.MethodGet, s.URL+"/api/v1/storefront?wait=true", "", nil)
	session := resp.Header.Get(middleware.SessionHeader)

	_, env := do[model.ViewState](t, http.MethodPut, s.URL+"/api/v1/storefront/query", session,
		map[string]any{"page": 2}, "Content-Type", "application/json")
	if env.Data.Query.Page != 2 {
		t.Fatalf("expected page 2, got %+v", env.Data.Query)
	}

	resp, env = do[model.ViewState](t, http.MethodPut, s.URL+"/api/v1/storefront/query?wait=true", session,
		map[string]any{"category": "kitchen"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	want := model.Query{Page: 2, Category: "kitchen", Sort: model.SortByName, Order: model.OrderAsc}
	if diff := cmp.Diff(want, env.Data.Query); diff != "" {
		t.Fatalf("query (-want +got):\n%s", diff)
	}
	if env.Data.Loading || env.Data.Products[0].Name != "kitchen-item" {
		t.Fatalf("unexpected state %+v", env.Data)
	}
}

func TestStorefrontRejectsInvalidQuery(t *testing.T) {
	s := newTestServer(t)

	resp, env := do[model.ViewState](t, http.MethodPut, s.URL+"/api/v1/storefront/query", "",
		map[string]any{"sort": "color", "page": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %+v", env.Error)
	}
	var fields []string
	for _, d := range env.Error.Details {
		fields = append(fields, d.Field)
	}
	if diff := cmp.Diff([]string{"page", "sort"}, fields); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	resp, env = do[model.ViewState](t, http.MethodPut, s.URL+"/api/v1/storefront/query", "",
		map[string]any{"colour": "red"})
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST for unknown field, got %d %+v", resp.StatusCode, env.Error)
	}
}

func TestStorefrontNotifications(t *testing.T) {
	s := newTestServer(t)
	s.upstream.failProducts.Store(true)

	resp, env := do[model.ViewState](t, http.MethodGet, s.URL+"/api/v1/storefront?wait=true", "", nil)
	session := resp.Header.Get(middleware.SessionHeader)

	if len(env.Data.Products) != 0 {
		t.Fatalf("failed fetch must leave products empty, got %+v", env.Data.Products)
	}
	if len(env.Data.Notifications) != 1 ||
		env.Data.Notifications[0].Message != "Error fetching products request failed with status code 502" {
		t.Fatalf("unexpected notifications %+v", env.Data.Notifications)
	}

	_, list := do[[]model.Notification](t, http.MethodGet, s.URL+"/api/v1/storefront/notifications", session, nil)
	if len(list.Data) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list.Data))
	}

	resp, _ = do[any](t, http.MethodDelete, s.URL+"/api/v1/storefront/notifications/"+list.Data[0].ID, session, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = do[any](t, http.MethodDelete, s.URL+"/api/v1/storefront/notifications/"+list.Data[0].ID, session, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	resp, _ := do[any](t, http.MethodGet, s.URL+"/api/v1/admin/stats", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", resp.StatusCode)
	}

	do[model.ViewState](t, http.MethodGet, s.URL+"/api/v1/storefront?wait=true", "", nil)

	resp, stats := do[map[string]any](t, http.MethodGet, s.URL+"/api/v1/admin/stats", "", nil, middleware.LoginKeyHeader, "secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	cacheStats := stats.Data["cache"].(map[string]any)
	if cacheStats["entries"].(float64) != 1 || cacheStats["storage"] != "memory" {
		t.Fatalf("unexpected cache stats %+v", cacheStats)
	}

	resp, purge := do[map[string]any](t, http.MethodPost, s.URL+"/api/v1/admin/cache/purge", "", nil, middleware.LoginKeyHeader, "secret")
	if resp.StatusCode != http.StatusOK || purge.Data["purged"].(float64) != 0 {
		t.Fatalf("fresh entries must survive a purge, got %d %+v", resp.StatusCode, purge.Data)
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	resp, health := do[handler.HealthResponse](t, http.MethodGet, s.URL+"/api/v1/health", "", nil)
	if resp.StatusCode != http.StatusOK || health.Data.Status != "healthy" || health.Data.Version != "test" {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, health.Data)
	}

	resp, ready := do[handler.ReadyResponse](t, http.MethodGet, s.URL+"/api/v1/ready", "", nil)
	if resp.StatusCode != http.StatusOK || !ready.Data.Ready || len(ready.Data.Checks) != 2 {
		t.Fatalf("unexpected ready %d %+v", resp.StatusCode, ready.Data)
	}

	resp, _ = do[handler.StatusResponse](t, http.MethodGet, s.URL+"/api/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNotificationRoutesDoNotCreateSessions(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 20; i++ {
		resp, list := do[[]model.Notification](t, http.MethodGet, s.URL+"/api/v1/storefront/notifications", "", nil)
		if resp.StatusCode != http.StatusOK || len(list.Data) != 0 {
			t.Fatalf("expected an empty list, got %d %+v", resp.StatusCode, list.Data)
		}
	}

	resp, _ := do[any](t, http.MethodDelete, s.URL+"/api/v1/storefront/notifications/abc", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown session, got %d", resp.StatusCode)
	}

	if n := s.registry.Len(); n != 0 {
		t.Fatalf("read-only routes must not create sessions, got %d", n)
	}
	if n := s.upstream.productHits.Load() + s.upstream.categoryHits.Load(); n != 0 {
		t.Fatalf("expected no upstream requests, got %d", n)
	}
}
