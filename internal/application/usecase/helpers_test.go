package usecase

import (
	"context"
	"sync"
	"time"

	"absensi/internal/domain/order"
	"absensi/internal/domain/product"
	"absensi/internal/domain/visit"
)

var testStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeClock is a hand-advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAuth serves a settable actor; nil means unauthenticated.
type fakeAuth struct {
	mu    sync.Mutex
	actor *Actor
	err   error
}

func (a *fakeAuth) CurrentActor(context.Context) (*Actor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.actor, a.err
}

func (a *fakeAuth) set(actor *Actor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actor = actor
}

// fakeNotifier records every notification.
type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
	sevs []Severity
}

func (n *fakeNotifier) Notify(message string, sev Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message)
	n.sevs = append(n.sevs, sev)
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.msgs))
	copy(out, n.msgs)
	return out
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

// fakeCatalog serves products from a map; absent id yields (nil, nil).
type fakeCatalog struct {
	products map[string]product.Product
}

func (c *fakeCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// fakeTransport scripts the outcome of each Create call in order; after the
// script runs out it succeeds.
type fakeTransport struct {
	mu      sync.Mutex
	script  []error
	created []order.Order
}

func (tr *fakeTransport) Create(_ context.Context, o order.Order) (order.Order, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.script) > 0 {
		err := tr.script[0]
		tr.script = tr.script[1:]
		if err != nil {
			return order.Order{}, err
		}
	}
	tr.created = append(tr.created, o)
	return o, nil
}

// fakeAttendance serves a fixed visit list, optionally failing.
type fakeAttendance struct {
	visits []visit.Visit
	err    error
	calls  int
}

func (a *fakeAttendance) ListByActor(_ context.Context, _ string, from, to time.Time) ([]visit.Visit, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	var out []visit.Visit
	for _, v := range a.visits {
		if !v.CheckInAt.Before(from) && v.CheckInAt.Before(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

// fakeCustomers serves customers from a map; absent id yields (nil, nil).
type fakeCustomers struct {
	customers map[string]visit.Customer
	err       error
	calls     int
}

func (c *fakeCustomers) GetByID(_ context.Context, id string) (*visit.Customer, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	cust, ok := c.customers[id]
	if !ok {
		return nil, nil
	}
	return &cust, nil
}

func (c *fakeCustomers) ListByActor(_ context.Context, _ string) ([]visit.Customer, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []visit.Customer
	for _, cust := range c.customers {
		out = append(out, cust)
	}
	return out, nil
}

// brokenStore fails every access, for degraded-storage paths.
type brokenStore struct{ err error }

func (s brokenStore) Get(string) (string, bool, error) { return "", false, s.err }
func (s brokenStore) Set(string, string) error         { return s.err }
func (s brokenStore) Delete(string) error              { return s.err }
