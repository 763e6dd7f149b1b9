package repo

import (
	"context"
	"sync"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

// InMemoryStore is a Store whose table lives in memory. It reports itself
// missing until the first ReplaceAll.
type InMemoryStore struct {
	mu       sync.Mutex
	products []models.Product
	seeded   bool
}

// NewInMemoryStore creates an empty, unseeded in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Exists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded, nil
}

func (s *InMemoryStore) Open(ctx context.Context) (ProductRepository, error) {
	return &InMemoryProductRepository{store: s}, nil
}

// InMemoryProductRepository is an in-memory implementation of ProductRepository.
type InMemoryProductRepository struct {
	store *InMemoryStore
}

// ReplaceAll discards the current contents and stores a copy of products.
func (r *InMemoryProductRepository) ReplaceAll(ctx context.Context, products []models.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.products = append([]models.Product(nil), products...)
	r.store.seeded = true
	return nil
}

// GetAll retrieves all products in insertion order.
func (r *InMemoryProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]models.Product(nil), r.store.products...), nil
}

// GetByID retrieves a product by its ID.
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id int) (models.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, ErrProductNotFound
}

func (r *InMemoryProductRepository) Count(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.products), nil
}

func (r *InMemoryProductRepository) Close() error { return nil }
