package order

import "context"

// Creator is the external order-creation transport.
//
// Implementations must classify failures via apperr.TransportError so the
// orchestrator and the offline queue can tell retryable (network/timeout
// shaped) from terminal errors. The returned Order carries at least the
// created ID.
type Creator interface {
	Create(ctx context.Context, o Order) (Order, error)
}
