package model

import (
	"fmt"

	"bayt-storefront/pkg/apierror"
)

// SortField is the product attribute the catalog is ordered by.
type SortField string

const (
	SortByName  SortField = "name"
	SortByPrice SortField = "price"
)

// SortOrder is the direction of the catalog ordering.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// AllCategories selects products of every category.
const AllCategories = "all"

// MaxCategoryLength keeps every cache key within the narrowest storage
// key column (VARCHAR(255) on MySQL).
const MaxCategoryLength = 128

// Query parameterizes a catalog request.
type Query struct {
	Page     int       `json:"page"`
	Category string    `json:"category"`
	Sort     SortField `json:"sort"`
	Order    SortOrder `json:"order"`
}

// DefaultQuery returns the query a freshly mounted view starts with.
func DefaultQuery() Query {
	return Query{
		Page:     1,
		Category: AllCategories,
		Sort:     SortByName,
		Order:    OrderAsc,
	}
}

// CacheKey returns the storage key for the page this query selects.
// Equal queries always map to the same key.
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s%d-%s-%s-%s", CacheKeyPrefix, q.Page, q.Category, q.Sort, q.Order)
}

// CacheKeyPrefix is shared by every catalog page key.
const CacheKeyPrefix = "products-"

// Validate checks every field and reports all invalid ones at once.
func (q Query) Validate() error {
	var details []apierror.FieldError

	if q.Page < 1 {
		details = append(details, apierror.FieldError{Field: "page", Message: "must be at least 1"})
	}
	if q.Category == "" {
		details = append(details, apierror.FieldError{Field: "category", Message: "must not be empty"})
	} else if len(q.Category) > MaxCategoryLength {
		details = append(details, apierror.FieldError{Field: "category", Message: fmt.Sprintf("must be at most %d bytes", MaxCategoryLength)})
	}
	if q.Sort != SortByName && q.Sort != SortByPrice {
		details = append(details, apierror.FieldError{Field: "sort", Message: "must be one of: name, price"})
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		details = append(details, apierror.FieldError{Field: "order", Message: "must be one of: asc, desc"})
	}

	if len(details) > 0 {
		return apierror.ValidationError("invalid catalog query", details...)
	}
	return nil
}

// QueryPatch holds optional changes to a Query.
type QueryPatch struct {
	Page     *int       `json:"page,omitempty"`
	Category *string    `json:"category,omitempty"`
	Sort     *SortField `json:"sort,omitempty"`
	Order    *SortOrder `json:"order,omitempty"`
}

// Apply returns q with the non-nil fields of p applied.
func (p QueryPatch) Apply(q Query) Query {
	if p.Page != nil {
		q.Page = *p.Page
	}
	if p.Category != nil {
		q.Category = *p.Category
	}
	if p.Sort != nil {
		q.Sort = *p.Sort
	}
	if p.Order != nil {
		q.Order = *p.Order
	}
	return q
}
