// Package product defines the catalog product type and the lookup port.
package product

import "context"

// Product is a catalog entry as seen by the cart and order components.
// Price is in currency minor units.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageRef string `json:"imageRef,omitempty"`
}

// Catalog is the product lookup port. Implementations may serve from a
// cache maintained outside this module.
//
// Not-found policy: return (nil, nil).
type Catalog interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}
