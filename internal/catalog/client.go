// Package catalog is the HTTP client for the remote product catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bayt-storefront/internal/model"

	"golang.org/x/sync/singleflight"
)

const (
	productsPath   = "/api/v1/products"
	categoriesPath = "/api/v1/products/categories"

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 8 << 20
)

// ErrMalformedResponse is returned when a 2xx body lacks the expected shape.
var ErrMalformedResponse = errors.New("malformed catalog response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// Client fetches catalog pages and categories.
// Concurrent identical GETs share one round-trip.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sf         singleflight.Group
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ProductsURL returns the catalog endpoint URL for q.
func (c *Client) ProductsURL(q model.Query) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("category", q.Category)
	params.Set("sort", string(q.Sort))
	params.Set("order", string(q.Order))
	return c.baseURL + productsPath + "?" + params.Encode()
}

// CategoriesURL returns the category list endpoint URL.
func (c *Client) CategoriesURL() string {
	return c.baseURL + categoriesPath
}

type productsEnvelope struct {
	Data struct {
		Products *model.CatalogPage `json:"products"`
	} `json:"data"`
}

type categoriesEnvelope struct {
	Data struct {
		Categories *[]string `json:"categories"`
	} `json:"data"`
}

// FetchProducts retrieves the catalog page selected by q.
func (c *Client) FetchProducts(ctx context.Context, q model.Query) (*model.CatalogPage, error) {
	body, err := c.get(ctx, c.ProductsURL(q))
	if err != nil {
		return nil, err
	}

	var env productsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Data.Products == nil {
		return nil, fmt.Errorf("%w: missing data.products", ErrMalformedResponse)
	}

	page := env.Data.Products
	if page.Rows == nil {
		page.Rows = []model.Product{}
	}
	return page, nil
}

// FetchCategories retrieves the list of category names.
func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, c.CategoriesURL())
	if err != nil {
		return nil, err
	}

	var env categoriesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Data.Categories == nil {
		return nil, fmt.Errorf("%w: missing data.categories", ErrMalformedResponse)
	}
	return *env.Data.Categories, nil
}

// get performs a GET, collapsing concurrent requests for the same URL.
// The shared request is detached from any single caller's cancellation;
// each caller still returns as soon as its own ctx is done.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	ch := c.sf.DoChan(rawURL, func() (interface{}, error) {
		return c.do(context.WithoutCancel(ctx), rawURL)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		body := res.Val.([]byte)
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
