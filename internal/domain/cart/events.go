package cart

// EventKind tags the cart change events published to UI renderers.
type EventKind string

const (
	EventItemAdded       EventKind = "item_added"
	EventItemRemoved     EventKind = "item_removed"
	EventQuantityUpdated EventKind = "quantity_updated"
	EventCleared         EventKind = "cleared"
)

// Event is the fixed payload shape per event kind. Fields not meaningful for
// a kind are zero:
//   - item_added:       Line, Cart
//   - item_removed:     Line, Cart
//   - quantity_updated: Line (new state), OldQty, NewQty, Cart
//   - cleared:          Removed, Cart
type Event struct {
	Kind    EventKind
	Line    Line
	OldQty  int
	NewQty  int
	Removed []Line
	Cart    Cart // snapshot after the mutation
}
