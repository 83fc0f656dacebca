package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Product is a single catalog row as returned by the catalog endpoint.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
}

// ImageURL returns the image URL with the product ID appended as a version
// parameter so renderers don't reuse a stale image across products.
func (p Product) ImageURL() string {
	return p.Image + "?v=" + strconv.FormatInt(p.ID, 10)
}

// CatalogPage is one page of the paginated catalog.
type CatalogPage struct {
	Rows       []Product `json:"rows"`
	TotalPages int       `json:"totalPages"`
}
