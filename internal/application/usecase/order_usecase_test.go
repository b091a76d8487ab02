package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absensi/internal/apperr"
	cartdom "absensi/internal/domain/cart"
	"absensi/internal/domain/order"
	"absensi/internal/domain/visit"
	"absensi/internal/platform/bus"
	"absensi/internal/platform/kv"
)

type orderFixture struct {
	orchestrator *OrderOrchestrator
	cart         *CartStore
	queue        *SyncQueue
	transport    *fakeTransport
	auth         *fakeAuth
	probe        *ManualConnectivity
	notifier     *fakeNotifier
	clock        *fakeClock
}

func newOrderFixture(t *testing.T, online bool) *orderFixture {
	t.Helper()
	clk := newFakeClock(testStart)
	auth := &fakeAuth{actor: salesActor()}
	notifier := &fakeNotifier{}
	probe := NewManualConnectivity(online)
	b := bus.New[cartdom.Event]()
	store := kv.NewMemory()

	cart := NewCartStore(store, b, clk, nil)
	customers := &fakeCustomers{customers: map[string]visit.Customer{
		"c-1": {ID: "c-1", Name: "Toko Maju"},
	}}
	visits := NewVisitResolver(&fakeAttendance{}, customers, auth, clk)
	session := NewSessionMonitor(DefaultSessionConfig(), auth, cart, b, notifier, clk, nil)
	queue := NewSyncQueue(testSyncConfig(), store, probe, notifier, clk)
	transport := &fakeTransport{}

	return &orderFixture{
		orchestrator: NewOrderOrchestrator(cart, visits, session, queue, transport, auth, probe, notifier, clk),
		cart:         cart,
		queue:        queue,
		transport:    transport,
		auth:         auth,
		probe:        probe,
		notifier:     notifier,
		clock:        clk,
	}
}

func (f *orderFixture) fillCart(t *testing.T) {
	t.Helper()
	_, err := f.cart.AddItem(pakan(), 2)
	require.NoError(t, err)
	_, err = f.cart.AddItem(vitamin(), 1)
	require.NoError(t, err)
}

func TestOrderOrchestrator_OnlineSuccess(t *testing.T) {
	f := newOrderFixture(t, true)
	f.fillCart(t)

	res, err := f.orchestrator.CompleteOrder(context.Background(), "c-1", "antar sore")
	require.NoError(t, err)

	assert.False(t, res.Offline)
	assert.Equal(t, "actor-1", res.Order.ActorID)
	assert.Equal(t, "c-1", res.Order.CustomerID)
	assert.Equal(t, int64(120_000), res.Order.Total)
	assert.Equal(t, "Pakan Ayam x2, Vitamin B x1", res.Order.Summary)
	assert.Equal(t, "antar sore", res.Order.Notes)
	assert.False(t, res.Order.OfflineCreated)

	assert.True(t, f.cart.Summary().IsEmpty)
	assert.Contains(t, f.notifier.messages(), "Pesanan berhasil dibuat.")
	require.Len(t, f.transport.created, 1)
}

func TestOrderOrchestrator_OfflineQueuesAndClears(t *testing.T) {
	f := newOrderFixture(t, false)
	f.fillCart(t)

	res, err := f.orchestrator.CompleteOrder(context.Background(), "c-1", "")
	require.NoError(t, err)

	assert.True(t, res.Offline)
	assert.True(t, res.Order.OfflineCreated)
	assert.True(t, f.cart.Summary().IsEmpty)
	assert.Contains(t, f.notifier.messages(), "Pesanan disimpan dan akan dikirim saat online.")

	require.Len(t, f.queue.Pending(), 1)
	require.Len(t, f.queue.OfflineOrders(), 1)
	assert.Empty(t, f.transport.created)
}

func TestOrderOrchestrator_AggregatesAllViolations(t *testing.T) {
	f := newOrderFixture(t, true)
	f.auth.set(nil) // cart empty, no customer, no session

	_, err := f.orchestrator.CompleteOrder(context.Background(), "", strings.Repeat("x", order.MaxNotesLen+1))
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Violations, "keranjang kosong")
	assert.Contains(t, ve.Violations, "pelanggan belum dipilih")
	assert.Contains(t, ve.Violations, "sesi tidak valid, silakan login kembali")
	assert.GreaterOrEqual(t, len(ve.Violations), 4)
}

func TestOrderOrchestrator_UnknownCustomerFails(t *testing.T) {
	f := newOrderFixture(t, true)
	f.fillCart(t)

	_, err := f.orchestrator.CompleteOrder(context.Background(), "c-missing", "")
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.False(t, f.cart.Summary().IsEmpty, "a failed completion leaves the cart intact")
}

func TestOrderOrchestrator_RetriesRetryableFailureOnce(t *testing.T) {
	f := newOrderFixture(t, true)
	f.fillCart(t)
	f.transport.script = []error{
		&apperr.TransportError{Op: "firestore.create", Retryable: true, Err: errors.New("unavailable")},
	}

	res, err := f.orchestrator.CompleteOrder(context.Background(), "c-1", "")
	require.NoError(t, err)
	assert.False(t, res.Offline)
	require.Len(t, f.transport.created, 1)
	assert.True(t, f.cart.Summary().IsEmpty)
}

func TestOrderOrchestrator_TerminalFailureDoesNotRetryOrClear(t *testing.T) {
	f := newOrderFixture(t, true)
	f.fillCart(t)
	f.transport.script = []error{
		&apperr.TransportError{Op: "firestore.create", Retryable: false, Err: errors.New("permission denied")},
	}

	_, err := f.orchestrator.CompleteOrder(context.Background(), "c-1", "")
	require.ErrorIs(t, err, apperr.ErrTransportFailure)

	assert.False(t, f.cart.Summary().IsEmpty)
	assert.Empty(t, f.transport.created)
}

// reentrantTransport tries to start a second completion from inside the
// first one's transport call.
type reentrantTransport struct {
	orchestrator *OrderOrchestrator
	second       error
}

func (tr *reentrantTransport) Create(ctx context.Context, o order.Order) (order.Order, error) {
	_, tr.second = tr.orchestrator.CompleteOrder(ctx, "c-1", "")
	return o, nil
}

func TestOrderOrchestrator_SingleFlight(t *testing.T) {
	f := newOrderFixture(t, true)
	f.fillCart(t)

	rt := &reentrantTransport{orchestrator: f.orchestrator}
	f.orchestrator.transport = rt

	_, err := f.orchestrator.CompleteOrder(context.Background(), "c-1", "")
	require.NoError(t, err)
	assert.ErrorIs(t, rt.second, ErrOrderInProgress)
}

func TestOrderOrchestrator_ExpiredSessionBlocksCompletion(t *testing.T) {
	f := newOrderFixture(t, true)
	f.fillCart(t)

	// Expire the session by exhausting the extension cap.
	sess := f.orchestrator.session
	for i := 0; i < DefaultSessionConfig().MaxExtensions; i++ {
		require.NoError(t, sess.Extend())
	}
	require.Error(t, sess.Extend())

	_, err := f.orchestrator.CompleteOrder(context.Background(), "c-1", "")
	require.ErrorIs(t, err, apperr.ErrValidationFailed)

	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Violations, "sesi tidak valid, silakan login kembali")
}
