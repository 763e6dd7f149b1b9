package repo

import (
	"context"
	"errors"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

// ProductRepository defines the operations the audit stages need on the
// local product table. A repository is obtained from a Store and closed by
// the stage that opened it.
type ProductRepository interface {
	ReplaceAll(ctx context.Context, products []models.Product) error
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id int) (models.Product, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Store hands out product repositories, one per stage.
type Store interface {
	Open(ctx context.Context) (ProductRepository, error)
	Exists(ctx context.Context) (bool, error)
}

// ErrProductNotFound is returned when a product is not found in the repository.
var ErrProductNotFound = errors.New("product not found")

// ErrStoreMissing is returned when the local store has not been seeded yet.
var ErrStoreMissing = errors.New("local store not found")
