// Package view implements the catalog view: it owns the query, resolves the
// selected page through the expiring cache or the catalog API, and exposes
// what a renderer needs.
package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"bayt-storefront/internal/model"
	"bayt-storefront/internal/store"
)

const (
	// DefaultCacheTTL is how long a fetched page is served from cache.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultPlaceholders is the number of skeleton cards shown while loading.
	DefaultPlaceholders = 9
)

// ErrClosed is returned when changing the query of a closed view.
var ErrClosed = errors.New("view is closed")

// Fetcher retrieves catalog data from the remote API.
type Fetcher interface {
	FetchProducts(ctx context.Context, q model.Query) (*model.CatalogPage, error)
	FetchCategories(ctx context.Context) ([]string, error)
}

// PageCache is the expiring cache of catalog pages.
type PageCache interface {
	Fresh(ctx context.Context, key string) (model.CatalogPage, bool, error)
	Store(ctx context.Context, key string, value model.CatalogPage, ttl time.Duration) error
}

// Notifications receives and lists user-facing messages.
type Notifications interface {
	Notify(variant model.Variant, message string)
	Active() []model.Notification
	Dismiss(id string) bool
}

// Options tunes a View.
type Options struct {
	// Name identifies the view in logs.
	Name string

	CacheTTL     time.Duration
	Placeholders int

	// AllowStaleResponses lets a superseded fetch overwrite state when it
	// resolves after a newer one. Off by default: superseded fetches are
	// cancelled and their results dropped.
	AllowStaleResponses bool
}

// View is the catalog view for one renderer.
type View struct {
	fetcher       Fetcher
	cache         PageCache
	store         *store.ProductStore
	notifications Notifications
	opts          Options

	mu         sync.Mutex
	query      model.Query
	mounted    bool
	closed     bool
	loading    bool
	totalPages int

	productSeq       uint64
	categorySeq      uint64
	cancelProducts   context.CancelFunc
	cancelCategories context.CancelFunc

	inflight int
	idle     chan struct{}
}

// New creates an unmounted view with the default query.
func New(fetcher Fetcher, cache PageCache, st *store.ProductStore, notifications Notifications, opts Options) *View {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Placeholders <= 0 {
		opts.Placeholders = DefaultPlaceholders
	}
	if opts.Name == "" {
		opts.Name = "default"
	}

	idle := make(chan struct{})
	close(idle)

	return &View{
		fetcher:       fetcher,
		cache:         cache,
		store:         st,
		notifications: notifications,
		opts:          opts,
		query:         model.DefaultQuery(),
		totalPages:    1,
		idle:          idle,
	}
}

// Mount resolves the current query the first time it is called.
// Fetches started here outlive ctx's cancellation; Close stops them.
func (v *View) Mount(ctx context.Context) error {
	return v.update(ctx, func(q model.Query) model.Query { return q })
}

// SetQuery replaces the whole query.
func (v *View) SetQuery(ctx context.Context, q model.Query) error {
	return v.update(ctx, func(model.Query) model.Query { return q })
}

// Update applies a partial change to the query.
func (v *View) Update(ctx context.Context, patch model.QueryPatch) error {
	return v.update(ctx, patch.Apply)
}

// SetPage selects a page.
func (v *View) SetPage(ctx context.Context, page int) error {
	return v.Update(ctx, model.QueryPatch{Page: &page})
}

// SetCategory changes the category filter. The page is kept as is.
func (v *View) SetCategory(ctx context.Context, category string) error {
	return v.Update(ctx, model.QueryPatch{Category: &category})
}

// SetSort changes the sort field.
func (v *View) SetSort(ctx context.Context, sort model.SortField) error {
	return v.Update(ctx, model.QueryPatch{Sort: &sort})
}

// SetOrder changes the sort direction.
func (v *View) SetOrder(ctx context.Context, order model.SortOrder) error {
	return v.Update(ctx, model.QueryPatch{Order: &order})
}

// update changes the query and, if it differs from the current one (or the
// view was never mounted), dispatches a product and a category resolve.
// Sequence numbers are taken under the same lock as the query change so
// dispatch order always matches query order.
func (v *View) update(ctx context.Context, fn func(model.Query) model.Query) error {
	v.mu.Lock()

	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}

	q := fn(v.query)
	if err := q.Validate(); err != nil {
		v.mu.Unlock()
		return err
	}
	if v.mounted && q == v.query {
		v.mu.Unlock()
		return nil
	}

	v.query = q
	v.mounted = true

	v.productSeq++
	v.categorySeq++
	productSeq, categorySeq := v.productSeq, v.categorySeq

	if !v.opts.AllowStaleResponses {
		if v.cancelProducts != nil {
			v.cancelProducts()
			v.cancelProducts = nil
		}
		if v.cancelCategories != nil {
			v.cancelCategories()
			v.cancelCategories = nil
		}
	}
	v.mu.Unlock()

	v.resolveCategories(ctx, categorySeq)
	v.resolveProducts(ctx, productSeq, q)
	return nil
}

// resolveProducts serves q from cache synchronously when fresh, otherwise
// starts a fetch in the background.
func (v *View) resolveProducts(ctx context.Context, seq uint64, q model.Query) {
	key := q.CacheKey()

	page, ok, err := v.cache.Fresh(ctx, key)
	if err != nil {
		log.Printf("[CatalogView] %s: cache read %s failed, treating as miss: %v", v.opts.Name, key, err)
	}

	v.mu.Lock()
	latest := seq == v.productSeq

	if ok {
		if latest || v.opts.AllowStaleResponses {
			v.store.SetProducts(page.Rows)
			v.totalPages = page.TotalPages
		}
		if latest {
			v.loading = false
		}
		v.mu.Unlock()
		return
	}

	if !latest && !v.opts.AllowStaleResponses {
		v.mu.Unlock()
		return
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if latest {
		v.loading = true
		v.cancelProducts = cancel
	}
	v.beginLocked()
	v.mu.Unlock()

	go func() {
		defer v.done()
		defer cancel()

		page, err := v.fetcher.FetchProducts(fetchCtx, q)
		if err == nil {
			if err := v.cache.Store(context.WithoutCancel(fetchCtx), key, *page, v.opts.CacheTTL); err != nil {
				log.Printf("[CatalogView] %s: cache write %s failed: %v", v.opts.Name, key, err)
			}
		}
		v.applyProducts(seq, page, err)
	}()
}

func (v *View) applyProducts(seq uint64, page *model.CatalogPage, err error) {
	v.mu.Lock()

	latest := seq == v.productSeq
	if latest {
		v.loading = false
		v.cancelProducts = nil
	}

	if v.closed || (!latest && !v.opts.AllowStaleResponses) {
		v.mu.Unlock()
		if !latest {
			log.Printf("[CatalogView] %s: dropped superseded products response #%d", v.opts.Name, seq)
		}
		return
	}

	if err != nil {
		v.mu.Unlock()
		v.notifications.Notify(model.VariantError, fmt.Sprintf("Error fetching products %v", err))
		return
	}

	v.store.SetProducts(page.Rows)
	v.totalPages = page.TotalPages
	v.mu.Unlock()
}

// resolveCategories refetches the category list; it is never cached.
func (v *View) resolveCategories(ctx context.Context, seq uint64) {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	v.mu.Lock()
	if seq != v.categorySeq && !v.opts.AllowStaleResponses {
		v.mu.Unlock()
		cancel()
		return
	}
	if seq == v.categorySeq {
		v.cancelCategories = cancel
	}
	v.beginLocked()
	v.mu.Unlock()

	go func() {
		defer v.done()
		defer cancel()

		categories, err := v.fetcher.FetchCategories(fetchCtx)

		v.mu.Lock()
		latest := seq == v.categorySeq
		if latest {
			v.cancelCategories = nil
		}
		if v.closed || (!latest && !v.opts.AllowStaleResponses) {
			v.mu.Unlock()
			return
		}
		if err != nil {
			v.mu.Unlock()
			log.Printf("[CatalogView] %s: categories fetch failed: %v", v.opts.Name, err)
			v.notifications.Notify(model.VariantError, "Error fetching categories")
			return
		}
		v.store.SetCategories(categories)
		v.mu.Unlock()
	}()
}

func (v *View) beginLocked() {
	if v.inflight == 0 {
		v.idle = make(chan struct{})
	}
	v.inflight++
}

func (v *View) done() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.inflight--
	if v.inflight == 0 {
		close(v.idle)
	}
}

// Wait blocks until every fetch dispatched so far has settled or ctx is done.
func (v *View) Wait(ctx context.Context) error {
	for {
		v.mu.Lock()
		if v.inflight == 0 {
			v.mu.Unlock()
			return nil
		}
		idle := v.idle
		v.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Query returns the current query.
func (v *View) Query() model.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Loading reports whether the latest product fetch is outstanding.
func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// State returns what a renderer draws: placeholders while loading,
// otherwise the stored products.
func (v *View) State() model.ViewState {
	v.mu.Lock()
	state := model.ViewState{
		Query:      v.query,
		Loading:    v.loading,
		TotalPages: v.totalPages,
		Products:   []model.Product{},
	}
	if v.loading {
		state.Placeholders = v.opts.Placeholders
	} else {
		state.Products = v.store.Products()
	}
	v.mu.Unlock()

	state.Categories = v.store.Categories()
	state.Notifications = v.notifications.Active()
	return state
}

// Notifications returns the view's notification queue.
func (v *View) Notifications() Notifications {
	return v.notifications
}

// Close cancels outstanding fetches. Their results are discarded.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closed = true
	if v.cancelProducts != nil {
		v.cancelProducts()
		v.cancelProducts = nil
	}
	if v.cancelCategories != nil {
		v.cancelCategories()
		v.cancelCategories = nil
	}
}
