// Package seed builds the local product snapshot from the live catalog.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
	"github.com/rogerio-castellano/inventory-audit/internal/repo"
)

// ErrSetup marks a failure that leaves no usable snapshot. The run must not
// continue past it.
var ErrSetup = errors.New("seed setup failed")

// CatalogFetcher retrieves the full product listing.
type CatalogFetcher interface {
	FetchAll(ctx context.Context) ([]models.Product, error)
}

// CorruptionPolicy rewrites the price of every product it matches before the
// product is stored. A zero policy matches nothing.
type CorruptionPolicy struct {
	Match     func(id int) bool
	Transform func(price float64) float64
}

// NoCorruption stores the catalog as fetched.
var NoCorruption = CorruptionPolicy{}

// SentinelPolicy replaces the price of product id with price.
func SentinelPolicy(id int, price float64) CorruptionPolicy {
	return CorruptionPolicy{
		Match:     func(pid int) bool { return pid == id },
		Transform: func(float64) float64 { return price },
	}
}

func (p CorruptionPolicy) apply(prod models.Product) (models.Product, bool) {
	if p.Match == nil || p.Transform == nil || !p.Match(prod.ID) {
		return prod, false
	}
	prod.Price = p.Transform(prod.Price)
	return prod, true
}

// Result describes a completed seed.
type Result struct {
	Fetched   int
	Stored    int
	Corrupted []int
}

type Loader struct {
	catalog CatalogFetcher
	store   repo.Store
	policy  CorruptionPolicy
	log     zerolog.Logger
}

func NewLoader(catalog CatalogFetcher, store repo.Store, policy CorruptionPolicy, log zerolog.Logger) *Loader {
	return &Loader{catalog: catalog, store: store, policy: policy, log: log}
}

// Load fetches the catalog and replaces the local products table with it,
// applying the corruption policy on the way in. Every error it returns wraps
// ErrSetup. The store is left untouched when the fetch fails.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	l.log.Info().Msg("building local database")

	products, err := l.catalog.FetchAll(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("catalog fetch failed, stopping to prevent database corruption")
		return Result{}, fmt.Errorf("%w: fetch catalog: %v", ErrSetup, err)
	}

	res := Result{Fetched: len(products)}
	rows := make([]models.Product, 0, len(products))
	for _, p := range products {
		p, corrupted := l.policy.apply(p)
		if corrupted {
			res.Corrupted = append(res.Corrupted, p.ID)
		}
		rows = append(rows, p)
	}

	r, err := l.store.Open(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: open store: %v", ErrSetup, err)
	}
	defer r.Close()

	if err := r.ReplaceAll(ctx, rows); err != nil {
		return res, fmt.Errorf("%w: replace products: %v", ErrSetup, err)
	}

	stored, err := r.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: count products: %v", ErrSetup, err)
	}
	res.Stored = stored
	if stored != res.Fetched {
		return res, fmt.Errorf("%w: stored %d of %d fetched products", ErrSetup, stored, res.Fetched)
	}

	l.log.Info().
		Int("products", res.Stored).
		Ints("corrupted_ids", res.Corrupted).
		Msgf("database created with %d intentional defect(s)", len(res.Corrupted))
	return res, nil
}
