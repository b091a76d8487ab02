// Package order defines the quick-order payload built from the cart and the
// transport port that submits it.
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceQuickOrder tags orders created from the catalog via the cart, as
// opposed to other order-creation paths.
const SourceQuickOrder = "quick_order"

const MaxNotesLen = 1000

var (
	ErrInvalidID       = errors.New("order: invalid id")
	ErrInvalidActorID  = errors.New("order: invalid actorId")
	ErrInvalidCustomer = errors.New("order: invalid customerId")
	ErrInvalidItems    = errors.New("order: invalid items")
	ErrInvalidTotal    = errors.New("order: invalid total")
	ErrNotesTooLong    = errors.New("order: notes too long")
)

// Item is a line snapshot frozen into the order at submission time.
type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
}

// Order is the payload sent to the external order-creation call.
// OfflineCreated marks orders queued while disconnected; it stays true until
// the queued create succeeds.
type Order struct {
	ID             string    `json:"id"`
	ActorID        string    `json:"actorId"`
	CustomerID     string    `json:"customerId"`
	Items          []Item    `json:"items"`
	Total          int64     `json:"totalAmount"`
	Summary        string    `json:"summary"`
	Notes          string    `json:"notes,omitempty"`
	Source         string    `json:"source"`
	OfflineCreated bool      `json:"offlineCreated,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func New(id, actorID, customerID string, items []Item, total int64, notes string, createdAt time.Time) (Order, error) {
	o := Order{
		ID:         strings.TrimSpace(id),
		ActorID:    strings.TrimSpace(actorID),
		CustomerID: strings.TrimSpace(customerID),
		Items:      normalizeItems(items),
		Total:      total,
		Summary:    Summarize(items),
		Notes:      strings.TrimSpace(notes),
		Source:     SourceQuickOrder,
		CreatedAt:  createdAt.UTC(),
	}
	if err := o.validate(); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (o Order) validate() error {
	if o.ID == "" {
		return ErrInvalidID
	}
	if o.ActorID == "" {
		return ErrInvalidActorID
	}
	if o.CustomerID == "" {
		return ErrInvalidCustomer
	}
	if len(o.Items) == 0 {
		return ErrInvalidItems
	}
	for _, it := range o.Items {
		if it.ProductID == "" || it.Name == "" || it.Qty <= 0 || it.UnitPrice < 0 {
			return ErrInvalidItems
		}
	}
	if o.Total <= 0 {
		return ErrInvalidTotal
	}
	if len(o.Notes) > MaxNotesLen {
		return ErrNotesTooLong
	}
	return nil
}

// Summarize builds the human-readable one-liner stored with the order,
// e.g. "Pakan Ayam x2, Vitamin B x1".
func Summarize(items []Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.Name, it.Qty))
	}
	return strings.Join(parts, ", ")
}

func normalizeItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.ProductID = strings.TrimSpace(it.ProductID)
		it.Name = strings.TrimSpace(it.Name)
		out = append(out, it)
	}
	return out
}
