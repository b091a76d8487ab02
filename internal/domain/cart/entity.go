// Package cart holds the cart aggregate: line items, quantities, totals and
// the caps that bound them. Persistence and event emission live in the
// application layer; this package owns the line math only.
package cart

import (
	"fmt"
	"strings"
	"time"

	"absensi/internal/apperr"
)

// Caps. Money is in currency minor units (IDR has none, so 1 == Rp1).
const (
	MaxLineQty = 100
	MaxLines   = 20
	MaxItems   = 500
	MaxTotal   = int64(100_000_000)
)

// Line is one line item. ProductID is unique within a cart.
type Line struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unitPrice"`
	Qty       int       `json:"qty"`
	ImageRef  string    `json:"imageRef,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart is the authoritative record of what the current actor intends to
// order. Lines keep insertion order. A line whose quantity reaches zero is
// removed, never kept.
type Cart struct {
	SessionID string    `json:"sessionId"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"lastModifiedAt"`
}

func New(sessionID string, now time.Time) *Cart {
	return &Cart{
		SessionID: strings.TrimSpace(sessionID),
		Lines:     []Line{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Total is Σ(unitPrice × quantity).
func (c *Cart) Total() int64 {
	var t int64
	for _, l := range c.Lines {
		t += l.UnitPrice * int64(l.Qty)
	}
	return t
}

// ItemCount is Σ(quantity).
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Add merges qty into an existing line for productID or appends a new one.
// The cart is left unchanged when an argument is invalid or a cap would be
// exceeded.
func (c *Cart) Add(productID, name string, unitPrice int64, imageRef string, qty int, now time.Time) error {
	pid := strings.TrimSpace(productID)
	if pid == "" || strings.TrimSpace(name) == "" || unitPrice < 0 || qty <= 0 {
		return fmt.Errorf("cart: add: %w", apperr.ErrInvalidArgument)
	}

	idx := c.find(pid)

	newQty := qty
	if idx >= 0 {
		newQty += c.Lines[idx].Qty
	}
	if newQty > MaxLineQty {
		return &apperr.LimitError{What: "jumlah per produk", Max: MaxLineQty}
	}
	if idx < 0 && len(c.Lines) >= MaxLines {
		return &apperr.LimitError{What: "jenis produk dalam keranjang", Max: MaxLines}
	}
	if c.ItemCount()+qty > MaxItems {
		return &apperr.LimitError{What: "total item dalam keranjang", Max: MaxItems}
	}
	if c.Total()+unitPrice*int64(qty) > MaxTotal {
		return &apperr.LimitError{What: "total belanja", Max: MaxTotal}
	}

	if idx >= 0 {
		c.Lines[idx].Qty = newQty
	} else {
		c.Lines = append(c.Lines, Line{
			ProductID: pid,
			Name:      strings.TrimSpace(name),
			UnitPrice: unitPrice,
			ImageRef:  strings.TrimSpace(imageRef),
			Qty:       qty,
			AddedAt:   now,
		})
	}
	c.UpdatedAt = now
	return nil
}

// SetQty replaces the quantity for productID. Zero removes the line.
func (c *Cart) SetQty(productID string, qty int, now time.Time) error {
	pid := strings.TrimSpace(productID)
	if pid == "" || qty < 0 {
		return fmt.Errorf("cart: set qty: %w", apperr.ErrInvalidArgument)
	}
	if qty > MaxLineQty {
		return &apperr.LimitError{What: "jumlah per produk", Max: MaxLineQty}
	}

	idx := c.find(pid)
	if qty == 0 {
		if idx >= 0 {
			c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
			c.UpdatedAt = now
		}
		return nil
	}
	if idx < 0 {
		return fmt.Errorf("cart: set qty: product %s not in cart: %w", pid, apperr.ErrInvalidArgument)
	}
	c.Lines[idx].Qty = qty
	c.UpdatedAt = now
	return nil
}

// Remove deletes the line for productID and reports whether it was present.
func (c *Cart) Remove(productID string, now time.Time) bool {
	idx := c.find(strings.TrimSpace(productID))
	if idx < 0 {
		return false
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	c.UpdatedAt = now
	return true
}

// Clear empties the cart and returns the removed lines.
func (c *Cart) Clear(now time.Time) []Line {
	removed := cloneLines(c.Lines)
	c.Lines = []Line{}
	c.UpdatedAt = now
	return removed
}

// Validate returns every violated rule, not just the first. An empty slice
// means the cart is valid for checkout.
func (c *Cart) Validate() []string {
	var violations []string

	if c.IsEmpty() {
		violations = append(violations, "keranjang kosong")
	}
	if c.Total() > MaxTotal {
		violations = append(violations, fmt.Sprintf("total belanja melebihi batas %d", MaxTotal))
	}
	if c.ItemCount() > MaxItems {
		violations = append(violations, fmt.Sprintf("total item melebihi batas %d", MaxItems))
	}
	if len(c.Lines) > MaxLines {
		violations = append(violations, fmt.Sprintf("jenis produk melebihi batas %d", MaxLines))
	}

	seen := map[string]bool{}
	for i, l := range c.Lines {
		switch {
		case strings.TrimSpace(l.ProductID) == "":
			violations = append(violations, fmt.Sprintf("baris %d: id produk kosong", i+1))
		case seen[l.ProductID]:
			violations = append(violations, fmt.Sprintf("baris %d: produk %s duplikat", i+1, l.ProductID))
		default:
			seen[l.ProductID] = true
		}
		if strings.TrimSpace(l.Name) == "" {
			violations = append(violations, fmt.Sprintf("baris %d: nama produk kosong", i+1))
		}
		if l.UnitPrice < 0 {
			violations = append(violations, fmt.Sprintf("baris %d: harga tidak valid", i+1))
		}
		if l.Qty < 1 || l.Qty > MaxLineQty {
			violations = append(violations, fmt.Sprintf("baris %d: jumlah harus 1-%d", i+1, MaxLineQty))
		}
	}
	return violations
}

// Snapshot returns a deep copy. Callers never see the internal slice.
func (c *Cart) Snapshot() Cart {
	return Cart{
		SessionID: c.SessionID,
		Lines:     cloneLines(c.Lines),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (c *Cart) find(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func cloneLines(src []Line) []Line {
	out := make([]Line, len(src))
	copy(out, src)
	return out
}
