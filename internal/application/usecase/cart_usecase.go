package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"absensi/internal/apperr"
	cartdom "absensi/internal/domain/cart"
	"absensi/internal/domain/product"
	"absensi/internal/platform/bus"
	"absensi/internal/platform/clock"
	"absensi/internal/platform/kv"
)

// cartStateKey is the fixed key the cart serializes under.
const cartStateKey = "cart:v1"

// CartStore is the authoritative in-memory + persisted cart. Every mutating
// call serializes the full state and emits a change event; read accessors
// return copies, never the internal containers.
type CartStore struct {
	mu      sync.Mutex
	store   kv.Store
	bus     *bus.Bus[cartdom.Event]
	clock   clock.Clock
	catalog product.Catalog
	cart    *cartdom.Cart
}

// NewCartStore loads any previously persisted cart. Malformed or unreadable
// stored state is treated as "no cart": it resets to empty and logs, it
// never fails construction.
func NewCartStore(store kv.Store, b *bus.Bus[cartdom.Event], clk clock.Clock, catalog product.Catalog) *CartStore {
	if clk == nil {
		clk = clock.System{}
	}
	s := &CartStore{
		store:   store,
		bus:     b,
		clock:   clk,
		catalog: catalog,
	}
	s.cart = s.loadOrReset()
	return s
}

func (s *CartStore) loadOrReset() *cartdom.Cart {
	now := s.clock.Now()
	fresh := cartdom.New(uuid.NewString(), now)

	raw, ok, err := s.store.Get(cartStateKey)
	if err != nil {
		log.Printf("[cart] load failed, starting empty: %v", err)
		return fresh
	}
	if !ok {
		return fresh
	}

	var c cartdom.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Printf("[cart] stored state malformed, starting empty: %v", err)
		return fresh
	}
	if c.SessionID == "" || len(c.Validate()) > 0 && !c.IsEmpty() {
		log.Printf("[cart] stored state invalid, starting empty")
		return fresh
	}
	if c.Lines == nil {
		c.Lines = []cartdom.Line{}
	}
	return &c
}

// AddItem merges quantity into the line for p, persists and emits
// item_added. Returns the new cart total.
func (s *CartStore) AddItem(p product.Product, qty int) (int64, error) {
	s.mu.Lock()
	now := s.clock.Now()
	if err := s.cart.Add(p.ID, p.Name, p.Price, p.ImageRef, qty, now); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.persistLocked()
	total := s.cart.Total()
	ev := cartdom.Event{
		Kind: cartdom.EventItemAdded,
		Line: cartdom.Line{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, ImageRef: p.ImageRef, Qty: qty, AddedAt: now},
		Cart: s.cart.Snapshot(),
	}
	s.mu.Unlock()

	s.publish(ev)
	return total, nil
}

// AddItemByID resolves the product through the catalog, then adds it.
func (s *CartStore) AddItemByID(ctx context.Context, productID string, qty int) (int64, error) {
	if s.catalog == nil {
		return 0, fmt.Errorf("cart: no catalog configured: %w", apperr.ErrInvalidArgument)
	}
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("cart: catalog lookup: %w", err)
	}
	if p == nil {
		return 0, fmt.Errorf("cart: product %s not found: %w", productID, apperr.ErrInvalidArgument)
	}
	return s.AddItem(*p, qty)
}

// RemoveItem removes the line if present and reports whether it was found.
func (s *CartStore) RemoveItem(productID string) bool {
	s.mu.Lock()
	idx := -1
	for i, l := range s.cart.Lines {
		if l.ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.cart.Lines[idx]
	s.cart.Remove(productID, s.clock.Now())
	s.persistLocked()
	ev := cartdom.Event{
		Kind: cartdom.EventItemRemoved,
		Line: removed,
		Cart: s.cart.Snapshot(),
	}
	s.mu.Unlock()

	s.publish(ev)
	return true
}

// UpdateQuantity sets the line quantity in place. Zero is equivalent to
// RemoveItem.
func (s *CartStore) UpdateQuantity(productID string, qty int) error {
	if qty == 0 {
		s.RemoveItem(productID)
		return nil
	}

	s.mu.Lock()
	var old int
	for _, l := range s.cart.Lines {
		if l.ProductID == productID {
			old = l.Qty
			break
		}
	}
	if err := s.cart.SetQty(productID, qty, s.clock.Now()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.persistLocked()
	var line cartdom.Line
	for _, l := range s.cart.Lines {
		if l.ProductID == productID {
			line = l
			break
		}
	}
	ev := cartdom.Event{
		Kind:   cartdom.EventQuantityUpdated,
		Line:   line,
		OldQty: old,
		NewQty: qty,
		Cart:   s.cart.Snapshot(),
	}
	s.mu.Unlock()

	s.publish(ev)
	return nil
}

// Clear empties the cart and emits cleared with the removed snapshot.
func (s *CartStore) Clear() {
	s.mu.Lock()
	removed := s.cart.Clear(s.clock.Now())
	s.persistLocked()
	ev := cartdom.Event{
		Kind:    cartdom.EventCleared,
		Removed: removed,
		Cart:    s.cart.Snapshot(),
	}
	s.mu.Unlock()

	s.publish(ev)
}

// Validate reports checkout readiness and every violated rule.
func (s *CartStore) Validate() (bool, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	violations := s.cart.Validate()
	return len(violations) == 0, violations
}

// State returns a deep copy of the cart.
func (s *CartStore) State() cartdom.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// CartSummary is the read model used by badges and the checkout button.
type CartSummary struct {
	Total     int64
	ItemCount int
	Lines     int
	IsEmpty   bool
}

func (s *CartStore) Summary() CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartSummary{
		Total:     s.cart.Total(),
		ItemCount: s.cart.ItemCount(),
		Lines:     len(s.cart.Lines),
		IsEmpty:   s.cart.IsEmpty(),
	}
}

// persistLocked serializes the full cart state. A storage failure degrades
// to in-memory-only operation: logged, never surfaced to the caller.
func (s *CartStore) persistLocked() {
	data, err := json.Marshal(s.cart)
	if err != nil {
		log.Printf("[cart] marshal failed: %v", err)
		return
	}
	if err := s.store.Set(cartStateKey, string(data)); err != nil {
		log.Printf("[cart] persist failed (continuing in memory): %v", err)
	}
}

func (s *CartStore) publish(ev cartdom.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
