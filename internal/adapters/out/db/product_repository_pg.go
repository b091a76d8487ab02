// Package db holds the Postgres-backed outbound adapters (catalog,
// customers, attendance). Read-only from this module's point of view.
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	productdom "absensi/internal/domain/product"
)

type ProductRepositoryPG struct {
	DB *sql.DB
}

func NewProductRepositoryPG(db *sql.DB) *ProductRepositoryPG {
	return &ProductRepositoryPG{DB: db}
}

// GetByID returns (nil, nil) when the product does not exist.
func (r *ProductRepositoryPG) GetByID(ctx context.Context, id string) (*productdom.Product, error) {
	const q = `
SELECT id, name, price, COALESCE(image_url, '')
FROM products
WHERE id = $1 AND is_active = true`

	var p productdom.Product
	err := r.DB.QueryRowContext(ctx, q, strings.TrimSpace(id)).
		Scan(&p.ID, &p.Name, &p.Price, &p.ImageRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
