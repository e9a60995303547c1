// Package catalog holds the session's immutable product reference data and
// the server-supplied category set.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/model"
)

// ProductFetcher is the slice of the API client the catalog needs.
type ProductFetcher interface {
	Products(ctx context.Context) ([]model.Product, []model.ProductCategory, error)
}

// Catalog is loaded once per session; after a successful Load the data is
// read-only.
type Catalog struct {
	mu         sync.Mutex
	fetcher    ProductFetcher
	logger     *slog.Logger
	products   []model.Product
	categories []model.ProductCategory
	loaded     bool
	loadFailed bool
}

func New(fetcher ProductFetcher, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Catalog{fetcher: fetcher, logger: logger}
}

// Load fetches products and categories. Failure is sticky for this catalog
// instance; cancellation is silent.
func (c *Catalog) Load(ctx context.Context) {
	products, categories, err := c.fetcher.Products(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error("product fetch failed", "error", err)
		c.loadFailed = true
		return
	}
	c.products = products
	c.categories = categories
	c.loaded = true
}

// Products returns the full reference set.
func (c *Catalog) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Categories returns the server-supplied category set.
func (c *Catalog) Categories() []model.ProductCategory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ProductCategory, len(c.categories))
	copy(out, c.categories)
	return out
}

// ByCategory returns the products whose category key matches.
func (c *Catalog) ByCategory(key string) []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Product
	for _, p := range c.products {
		if p.Category == key {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the product with the given id.
func (c *Catalog) Find(id uuid.UUID) (model.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// Loaded reports whether reference data is available.
func (c *Catalog) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// LoadFailed reports the sticky failure flag.
func (c *Catalog) LoadFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadFailed
}
