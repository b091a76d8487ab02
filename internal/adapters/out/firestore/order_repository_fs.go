// Package firestore holds the Firestore-backed outbound adapters.
package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"absensi/internal/apperr"
	orderdom "absensi/internal/domain/order"
)

// OrderRepositoryFS implements order.Creator against the "orders"
// collection. docId = order.ID (generated client-side so an offline replay
// writes the same document it would have written online).
type OrderRepositoryFS struct {
	Client *firestore.Client
}

func NewOrderRepositoryFS(client *firestore.Client) *OrderRepositoryFS {
	return &OrderRepositoryFS{Client: client}
}

func (r *OrderRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("orders")
}

func (r *OrderRepositoryFS) Create(ctx context.Context, o orderdom.Order) (orderdom.Order, error) {
	if r == nil || r.Client == nil {
		return orderdom.Order{}, errors.New("order_repository_fs: firestore client is nil")
	}
	id := strings.TrimSpace(o.ID)
	if id == "" {
		return orderdom.Order{}, orderdom.ErrInvalidID
	}

	// Create (not Set): a duplicate id means this order already exists,
	// which must surface as terminal, never create a second order.
	if _, err := r.col().Doc(id).Create(ctx, o); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return o, nil // replay of an already-delivered create: idempotent success
		}
		return orderdom.Order{}, classify("create order", err)
	}
	return o, nil
}

// classify maps transport errors into the retryable/terminal taxonomy.
// Network/timeout-shaped gRPC codes are worth an automatic retry; anything
// else (including server-side validation) is terminal.
func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return &apperr.TransportError{Op: op, Retryable: true, Err: err}
	default:
		return &apperr.TransportError{Op: op, Retryable: false, Err: err}
	}
}
