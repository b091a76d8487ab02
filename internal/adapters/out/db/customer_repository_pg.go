package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	visitdom "absensi/internal/domain/visit"
)

type CustomerRepositoryPG struct {
	DB *sql.DB
}

func NewCustomerRepositoryPG(db *sql.DB) *CustomerRepositoryPG {
	return &CustomerRepositoryPG{DB: db}
}

// GetByID returns (nil, nil) when the customer does not exist.
func (r *CustomerRepositoryPG) GetByID(ctx context.Context, id string) (*visitdom.Customer, error) {
	const q = `
SELECT id, name, COALESCE(address, '')
FROM customers
WHERE id = $1`

	var c visitdom.Customer
	err := r.DB.QueryRowContext(ctx, q, strings.TrimSpace(id)).
		Scan(&c.ID, &c.Name, &c.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByActor returns the customers assigned to one field-sales actor.
func (r *CustomerRepositoryPG) ListByActor(ctx context.Context, actorID string) ([]visitdom.Customer, error) {
	const q = `
SELECT id, name, COALESCE(address, '')
FROM customers
WHERE sales_id = $1
ORDER BY name`

	rows, err := r.DB.QueryContext(ctx, q, strings.TrimSpace(actorID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []visitdom.Customer
	for rows.Next() {
		var c visitdom.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Address); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
