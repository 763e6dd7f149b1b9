// Package sandbox provides local stand-ins for the product catalog and the
// issue tracker, for tests and offline runs.
package sandbox

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

// Catalog serves a fixed product listing. Listing is at /products and single
// products at /products/{id}.
type Catalog struct {
	mu       sync.Mutex
	products []models.Product
	failures map[int]int
	bare     bool
	hits     map[int]int
}

func NewCatalog(products ...models.Product) *Catalog {
	return &Catalog{
		products: append([]models.Product(nil), products...),
		failures: map[int]int{},
		hits:     map[int]int{},
	}
}

// BareArray makes the listing a top-level JSON array instead of
// {"products": [...]}.
func (c *Catalog) BareArray() *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bare = true
	return c
}

// SetPrice changes the live price of a product.
func (c *Catalog) SetPrice(id int, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == id {
			c.products[i].Price = price
		}
	}
}

// FailItem makes lookups of id answer with status.
func (c *Catalog) FailItem(id, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[id] = status
}

// Lookups returns how many times each product id was requested.
func (c *Catalog) Lookups() map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]int, len(c.hits))
	for k, v := range c.hits {
		out[k] = v
	}
	return out
}

func (c *Catalog) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/products", c.listProducts)
	r.Get("/products/{id}", c.getProduct)
	return r
}

func (c *Catalog) listProducts(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	products := append([]models.Product{}, c.products...)
	bare := c.bare
	c.mu.Unlock()

	if bare {
		writeJSON(w, http.StatusOK, products)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    len(products),
	})
}

func (c *Catalog) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	c.hits[id]++
	status, failing := c.failures[id]
	var found *models.Product
	for _, p := range c.products {
		if p.ID == id {
			p := p
			found = &p
			break
		}
	}
	c.mu.Unlock()

	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if found == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product with id '" + strconv.Itoa(id) + "' not found"})
		return
	}
	writeJSON(w, http.StatusOK, found)
}
