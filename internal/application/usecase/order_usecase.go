package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"absensi/internal/apperr"
	cartdom "absensi/internal/domain/cart"
	"absensi/internal/domain/order"
	"absensi/internal/platform/clock"
)

// ErrOrderInProgress rejects a second completion while one is in flight for
// this session. Single-flight, not per-customer.
var ErrOrderInProgress = errors.New("order: completion already in progress")

const (
	createRetries    = 2 // bounded automatic retries for retryable transport failures
	createRetryDelay = time.Second
)

// OrderResult is what the UI gets back. An offline result must be treated
// identically to a confirmed order for feedback purposes; actual
// persistence is deferred to the sync queue.
type OrderResult struct {
	Order   order.Order
	Offline bool
}

// OrderOrchestrator is the single choke point for turning a cart into a
// submitted order. The pipeline runs fixed named stages in order:
// validate → resolve customer → build payload → submit (or queue) →
// clear cart → notify.
type OrderOrchestrator struct {
	cart      *CartStore
	visits    *VisitResolver
	session   *SessionMonitor
	queue     *SyncQueue
	transport order.Creator
	auth      AuthProvider
	probe     ConnectivityProbe
	notifier  Notifier
	clock     clock.Clock

	inFlight atomic.Bool
}

func NewOrderOrchestrator(cart *CartStore, visits *VisitResolver, session *SessionMonitor, queue *SyncQueue, transport order.Creator, auth AuthProvider, probe ConnectivityProbe, notifier Notifier, clk clock.Clock) *OrderOrchestrator {
	if clk == nil {
		clk = clock.System{}
	}
	return &OrderOrchestrator{
		cart:      cart,
		visits:    visits,
		session:   session,
		queue:     queue,
		transport: transport,
		auth:      auth,
		probe:     probe,
		notifier:  notifier,
		clock:     clk,
	}
}

// CompleteOrder validates the cart, customer and session, builds the order
// payload and submits it: directly when online, through the offline queue
// otherwise. On success the cart is cleared.
func (u *OrderOrchestrator) CompleteOrder(ctx context.Context, customerID, notes string) (OrderResult, error) {
	if !u.inFlight.CompareAndSwap(false, true) {
		return OrderResult{}, ErrOrderInProgress
	}
	defer u.inFlight.Store(false)

	var actor *Actor
	if u.auth != nil {
		a, err := u.auth.CurrentActor(ctx)
		if err != nil {
			log.Printf("[order] actor lookup failed: %v", err)
		} else {
			actor = a
		}
	}

	st := u.cart.State()
	if verr := u.validate(ctx, st, actor, customerID, notes); verr != nil {
		return OrderResult{}, verr
	}

	// Customer resolution is fatal here, unlike the suggestion paths.
	customer, err := u.visits.CustomerByID(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return OrderResult{}, fmt.Errorf("order: resolve customer: %w", err)
	}
	if customer == nil {
		return OrderResult{}, &apperr.ValidationError{Violations: []string{"pelanggan tidak ditemukan"}}
	}

	items := make([]order.Item, 0, len(st.Lines))
	for _, l := range st.Lines {
		items = append(items, order.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
		})
	}
	o, err := order.New(uuid.NewString(), actor.ID, customer.ID, items, st.Total(), notes, u.clock.Now())
	if err != nil {
		return OrderResult{}, fmt.Errorf("order: build payload: %w", err)
	}

	if u.probe == nil || !u.probe.Online() {
		return u.completeOffline(ctx, o)
	}
	return u.completeOnline(ctx, o)
}

func (u *OrderOrchestrator) completeOnline(ctx context.Context, o order.Order) (OrderResult, error) {
	created, err := u.createWithRetry(ctx, o)
	if err != nil {
		u.notifyErr(err)
		return OrderResult{}, err
	}

	u.cart.Clear()
	u.notify("Pesanan berhasil dibuat.", SeverityInfo)
	return OrderResult{Order: created}, nil
}

func (u *OrderOrchestrator) completeOffline(ctx context.Context, o order.Order) (OrderResult, error) {
	if err := u.queue.QueueOfflineOrder(ctx, o); err != nil {
		u.notifyErr(err)
		return OrderResult{}, fmt.Errorf("order: queue offline: %w", err)
	}

	u.cart.Clear()
	u.notify("Pesanan disimpan dan akan dikirim saat online.", SeverityInfo)
	o.OfflineCreated = true
	return OrderResult{Order: o, Offline: true}, nil
}

// createWithRetry retries a retryable-classified failure up to createRetries
// times with increasing delay. Terminal failures surface immediately.
func (u *OrderOrchestrator) createWithRetry(ctx context.Context, o order.Order) (order.Order, error) {
	var lastErr error
	for attempt := 0; attempt <= createRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return order.Order{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * createRetryDelay):
			}
			log.Printf("[order] retrying create (attempt %d/%d)", attempt, createRetries)
		}

		created, err := u.transport.Create(ctx, o)
		if err == nil {
			return created, nil
		}
		lastErr = err
		if !apperr.Retryable(err) {
			break
		}
	}
	return order.Order{}, fmt.Errorf("order: create: %w", lastErr)
}

// validate aggregates every violated rule into one error instead of failing
// fast on the first.
func (u *OrderOrchestrator) validate(ctx context.Context, st cartdom.Cart, actor *Actor, customerID, notes string) error {
	var violations []string

	violations = append(violations, st.Validate()...)
	if st.Total() <= 0 && !st.IsEmpty() {
		violations = append(violations, "total pesanan harus lebih dari 0")
	}
	if strings.TrimSpace(customerID) == "" {
		violations = append(violations, "pelanggan belum dipilih")
	}
	if len(notes) > order.MaxNotesLen {
		violations = append(violations, fmt.Sprintf("catatan melebihi %d karakter", order.MaxNotesLen))
	}
	if actor == nil || u.session == nil || !u.session.Valid(ctx) {
		violations = append(violations, "sesi tidak valid, silakan login kembali")
	}

	if len(violations) > 0 {
		return &apperr.ValidationError{Violations: violations}
	}
	return nil
}

func (u *OrderOrchestrator) notify(message string, sev Severity) {
	if u.notifier != nil {
		u.notifier.Notify(message, sev)
	}
}

func (u *OrderOrchestrator) notifyErr(err error) {
	u.notify(apperr.UserMessage(err), SeverityError)
	log.Printf("[order] complete failed (%s): %v", apperr.Kind(err), err)
}
