// Package scan compares the local product snapshot against the live catalog.
package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
	"github.com/rogerio-castellano/inventory-audit/internal/repo"
)

// PriceFetcher looks up the live price of one product.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, id int) (float64, error)
}

type Options struct {
	// Limit caps the number of stored records checked, in id order.
	// Zero checks every record.
	Limit int
	// Tolerance is the largest absolute price difference not reported.
	// Zero reports any difference.
	Tolerance float64
}

type Scanner struct {
	store     repo.Store
	catalog   PriceFetcher
	limit     int
	tolerance decimal.Decimal
	log       zerolog.Logger
}

func NewScanner(store repo.Store, catalog PriceFetcher, opts Options, log zerolog.Logger) *Scanner {
	return &Scanner{
		store:     store,
		catalog:   catalog,
		limit:     opts.Limit,
		tolerance: decimal.NewFromFloat(opts.Tolerance),
		log:       log,
	}
}

// Scan re-checks stored prices against the catalog and returns the
// mismatches found. A missing store yields no defects and no error. Failures
// on individual records are logged and skipped.
func (s *Scanner) Scan(ctx context.Context) ([]models.Defect, error) {
	s.log.Info().Msg("scanning for data mismatches")

	exists, err := s.store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check store: %w", err)
	}
	if !exists {
		s.log.Error().Err(repo.ErrStoreMissing).Msg("database file not found, setup failed")
		return nil, nil
	}

	r, err := s.store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer r.Close()

	stored, err := r.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	subset := stored
	if s.limit > 0 && s.limit < len(stored) {
		subset = stored[:s.limit]
	}
	s.log.Info().Msgf("checking %d of %d records", len(subset), len(stored))

	return s.check(ctx, subset)
}

// ScanIDs re-checks only the given stored products, ignoring the limit.
// Ids that are not in the store are logged and skipped.
func (s *Scanner) ScanIDs(ctx context.Context, ids []int) ([]models.Defect, error) {
	exists, err := s.store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check store: %w", err)
	}
	if !exists {
		s.log.Error().Err(repo.ErrStoreMissing).Msg("database file not found, setup failed")
		return nil, nil
	}

	r, err := s.store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer r.Close()

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetByID(ctx, id)
		if errors.Is(err, repo.ErrProductNotFound) {
			s.log.Warn().Int("id", id).Msg("item not in local store")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read product %d: %w", id, err)
		}
		products = append(products, p)
	}
	s.log.Info().Msgf("checking %d selected records", len(products))

	return s.check(ctx, products)
}

func (s *Scanner) check(ctx context.Context, products []models.Product) ([]models.Defect, error) {
	var defects []models.Defect
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return defects, err
		}

		live, err := s.catalog.FetchPrice(ctx, p.ID)
		if err != nil {
			s.log.Warn().Err(err).Int("id", p.ID).Msg("error checking item")
			continue
		}

		if d, ok := s.compare(p, live); ok {
			s.log.Warn().Int("id", p.ID).Msg("found issue: " + d.Description)
			defects = append(defects, d)
		}
	}
	return defects, nil
}

func (s *Scanner) compare(p models.Product, live float64) (models.Defect, bool) {
	expected := decimal.NewFromFloat(live)
	actual := decimal.NewFromFloat(p.Price)
	if expected.Sub(actual).Abs().LessThanOrEqual(s.tolerance) {
		return models.Defect{}, false
	}
	return models.Defect{
		ID:          p.ID,
		Description: fmt.Sprintf("Price Mismatch for Item %d. DB: $%s, API: $%s", p.ID, money(actual), money(expected)),
		Expected:    expected,
		Actual:      actual,
	}, true
}

// money renders a price with at least two decimal places, keeping any
// further precision so small differences stay visible.
func money(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}
