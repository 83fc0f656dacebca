// Package store holds the products and categories most recently fetched by
// a catalog view.
package store

import (
	"sync"

	"bayt-storefront/internal/model"
)

// ProductStore is a last-write-wins container for one view's data.
// It is safe for concurrent use and never hands out its internal slices.
type ProductStore struct {
	mu         sync.RWMutex
	products   []model.Product
	categories []string
}

// New creates an empty store.
func New() *ProductStore {
	return &ProductStore{
		products:   []model.Product{},
		categories: []string{},
	}
}

// SetProducts replaces the product list.
func (s *ProductStore) SetProducts(products []model.Product) {
	cp := append([]model.Product{}, products...)

	s.mu.Lock()
	s.products = cp
	s.mu.Unlock()
}

// SetCategories replaces the category list.
func (s *ProductStore) SetCategories(categories []string) {
	cp := append([]string{}, categories...)

	s.mu.Lock()
	s.categories = cp
	s.mu.Unlock()
}

// Products returns the latest product list.
func (s *ProductStore) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Product{}, s.products...)
}

// Categories returns the latest category list.
func (s *ProductStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.categories...)
}
