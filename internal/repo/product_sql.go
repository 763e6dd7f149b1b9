package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rogerio-castellano/inventory-audit/internal/db"
	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

const queryTimeout = 3 * time.Second

// SQLStore is a Store backed by one of the database/sql drivers in package db.
type SQLStore struct {
	cfg db.Config
}

func NewSQLStore(cfg db.Config) *SQLStore {
	return &SQLStore{cfg: cfg}
}

func (s *SQLStore) Exists(ctx context.Context) (bool, error) {
	return db.Exists(s.cfg)
}

func (s *SQLStore) Open(ctx context.Context) (ProductRepository, error) {
	dialect, err := db.DialectFor(s.cfg.Driver)
	if err != nil {
		return nil, err
	}
	conn, err := db.Connect(ctx, s.cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLProductRepository(conn, dialect), nil
}

type SQLProductRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQLProductRepository(conn *sql.DB, dialect db.Dialect) *SQLProductRepository {
	return &SQLProductRepository{db: conn, dialect: dialect}
}

// ReplaceAll drops the products table, recreates it and inserts every
// product, all in one transaction.
func (r *SQLProductRepository) ReplaceAll(ctx context.Context, products []models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS products`); err != nil {
		return fmt.Errorf("drop products: %w", err)
	}
	create := fmt.Sprintf(`CREATE TABLE products (id INTEGER PRIMARY KEY, title TEXT, price %s)`, r.dialect.PriceType)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create products: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO products (id, title, price) VALUES (%s, %s, %s)`,
		r.dialect.Placeholder(1), r.dialect.Placeholder(2), r.dialect.Placeholder(3))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Title, p.Price); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	query := `SELECT id, title, price FROM products ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *SQLProductRepository) GetByID(ctx context.Context, id int) (models.Product, error) {
	query := `SELECT id, title, price FROM products WHERE id = ` + r.dialect.Placeholder(1)
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p models.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *SQLProductRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (r *SQLProductRepository) Close() error {
	return r.db.Close()
}
