package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"absensi/internal/apperr"
	"absensi/internal/domain/order"
	"absensi/internal/domain/syncqueue"
	"absensi/internal/platform/clock"
	"absensi/internal/platform/kv"
)

const (
	syncQueueKey     = "syncqueue:v1"
	offlineOrdersKey = "offline_orders:v1"
)

var (
	ErrSyncInFlight = errors.New("sync: attempt already in flight")
	ErrNoHandler    = errors.New("sync: no handler registered")
)

// Handler replays one queued operation against the external API.
type Handler func(ctx context.Context, payload json.RawMessage) error

type SyncConfig struct {
	Interval       time.Duration // periodic sync while online and non-empty
	ProbeInterval  time.Duration // connectivity edge detection
	InterItemDelay time.Duration // pause between items, keeps the API calm
	Retention      time.Duration // queue items and offline orders older than this are pruned
	BackoffBase    time.Duration
	BackoffCap     time.Duration
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Interval:       5 * time.Minute,
		ProbeInterval:  5 * time.Second,
		InterItemDelay: 100 * time.Millisecond,
		Retention:      7 * 24 * time.Hour,
		BackoffBase:    time.Second,
		BackoffCap:     30 * time.Second,
	}
}

// SyncQueue buffers mutating operations while disconnected and replays them
// strictly in enqueue order once connectivity returns. It owns the
// OfflineQueueItem and offline-order lifecycles exclusively.
type SyncQueue struct {
	cfg      SyncConfig
	store    kv.Store
	probe    ConnectivityProbe
	notifier Notifier
	clock    clock.Clock

	mu       sync.Mutex
	items    []syncqueue.Item
	orders   []order.Order // offline orders, mirrored until their create_order item completes
	handlers map[syncqueue.Op]Handler
	backoff  *syncqueue.Backoff

	syncing   atomic.Bool
	wasOnline bool
}

// NewSyncQueue loads any persisted queue; malformed stored state degrades to
// an empty queue (logged, never an error).
func NewSyncQueue(cfg SyncConfig, store kv.Store, probe ConnectivityProbe, notifier Notifier, clk clock.Clock) *SyncQueue {
	if clk == nil {
		clk = clock.System{}
	}
	q := &SyncQueue{
		cfg:      cfg,
		store:    store,
		probe:    probe,
		notifier: notifier,
		clock:    clk,
		handlers: map[syncqueue.Op]Handler{},
		backoff:  syncqueue.NewBackoff(cfg.BackoffBase, cfg.BackoffCap),
	}
	q.items = loadJSON[[]syncqueue.Item](store, syncQueueKey, "queue")
	q.orders = loadJSON[[]order.Order](store, offlineOrdersKey, "offline orders")
	return q
}

func loadJSON[T any](store kv.Store, key, what string) T {
	var zero T
	raw, ok, err := store.Get(key)
	if err != nil {
		log.Printf("[sync] %s load failed, starting empty: %v", what, err)
		return zero
	}
	if !ok {
		return zero
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Printf("[sync] %s state malformed, starting empty: %v", what, err)
		return zero
	}
	return v
}

// RegisterHandler binds the replay handler for one operation tag.
func (q *SyncQueue) RegisterHandler(op syncqueue.Op, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[op] = h
}

// Enqueue appends an operation, persists the whole queue, and attempts an
// immediate sync when currently online.
func (q *SyncQueue) Enqueue(ctx context.Context, op syncqueue.Op, payload any) (syncqueue.Item, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return syncqueue.Item{}, fmt.Errorf("sync: marshal payload: %w", err)
	}
	item, err := syncqueue.NewItem(uuid.NewString(), op, data, q.clock.Now())
	if err != nil {
		return syncqueue.Item{}, err
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.persistLocked()
	q.mu.Unlock()

	if q.online() {
		if err := q.AttemptSync(ctx); err != nil && !errors.Is(err, ErrSyncInFlight) {
			log.Printf("[sync] immediate sync after enqueue failed: %v", err)
		}
	}
	return item, nil
}

// QueueOfflineOrder stores the payload among offline orders (marked
// offlineCreated) and enqueues the matching create_order item. The mirror
// is only removed after that item completes successfully.
func (q *SyncQueue) QueueOfflineOrder(ctx context.Context, o order.Order) error {
	o.OfflineCreated = true

	q.mu.Lock()
	q.orders = append(q.orders, o)
	q.persistLocked()
	q.mu.Unlock()

	_, err := q.Enqueue(ctx, syncqueue.OpCreateOrder, o)
	return err
}

// Pending returns a copy of the active queue.
func (q *SyncQueue) Pending() []syncqueue.Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]syncqueue.Item, len(q.items))
	copy(out, q.items)
	return out
}

// OfflineOrders returns a copy of the not-yet-synced order mirrors.
func (q *SyncQueue) OfflineOrders() []order.Order {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]order.Order, len(q.orders))
	copy(out, q.orders)
	return out
}

// AttemptSync processes the queue sequentially. It is a no-op when offline
// or the queue is empty, and rejects (not queues) a concurrent attempt.
// Respects the backoff schedule; use ForceSync to bypass it.
func (q *SyncQueue) AttemptSync(ctx context.Context) error {
	return q.sync(ctx, false)
}

// ForceSync is the manual trigger: it ignores the backoff schedule but
// still honors the single-flight guarantee.
func (q *SyncQueue) ForceSync(ctx context.Context) error {
	return q.sync(ctx, true)
}

func (q *SyncQueue) sync(ctx context.Context, force bool) error {
	if !q.online() {
		return nil
	}
	if len(q.Pending()) == 0 {
		return nil
	}
	if !force && !q.backoffReady() {
		return nil
	}
	if !q.syncing.CompareAndSwap(false, true) {
		return ErrSyncInFlight
	}
	defer q.syncing.Store(false)

	log.Printf("[sync] replaying %d item(s)", len(q.Pending()))

	for {
		item, ok := q.head()
		if !ok {
			break
		}

		h := q.handlerFor(item.Op)
		if h == nil {
			log.Printf("[sync] %v: %s, dropping item %s", ErrNoHandler, item.Op, item.ID)
			q.finish(item.ID, false)
			continue
		}

		err := h(ctx, item.Payload)
		if err == nil {
			q.finish(item.ID, true)
			q.mu.Lock()
			q.backoff.Reset()
			q.mu.Unlock()
			if q.cfg.InterItemDelay > 0 {
				time.Sleep(q.cfg.InterItemDelay)
			}
			continue
		}

		log.Printf("[sync] item %s (%s) failed (%s): %v", item.ID, item.Op, apperr.Kind(err), err)
		exhausted := q.recordFailure(item.ID)
		if exhausted {
			q.finish(item.ID, false)
			q.notify(fmt.Sprintf("Operasi offline gagal setelah %d percobaan.", syncqueue.MaxRetries), SeverityError)
			continue
		}

		// Leave the item pending at the head and abandon this cycle; the
		// next tick retries after the backoff delay.
		q.mu.Lock()
		q.backoff.Fail(q.clock.Now())
		q.mu.Unlock()
		return err
	}
	return nil
}

// Cleanup prunes queue items and offline orders older than the retention
// window, regardless of sync success. Bounded storage beats delivery here.
func (q *SyncQueue) Cleanup() {
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	dropped := 0
	for _, it := range q.items {
		if it.Expired(now, q.cfg.Retention) {
			dropped++
			continue
		}
		kept = append(kept, it)
	}
	q.items = kept

	keptOrders := q.orders[:0]
	for _, o := range q.orders {
		if now.Sub(o.CreatedAt) > q.cfg.Retention {
			dropped++
			continue
		}
		keptOrders = append(keptOrders, o)
	}
	q.orders = keptOrders

	if dropped > 0 {
		log.Printf("[sync] pruned %d aged-out entries", dropped)
		q.persistLocked()
	}
}

// Run watches connectivity and drives the periodic sync and cleanup ticks
// until ctx is cancelled.
func (q *SyncQueue) Run(ctx context.Context) error {
	probeEvery := q.cfg.ProbeInterval
	if probeEvery <= 0 {
		probeEvery = 5 * time.Second
	}
	syncEvery := q.cfg.Interval
	if syncEvery <= 0 {
		syncEvery = 5 * time.Minute
	}

	probe := time.NewTicker(probeEvery)
	defer probe.Stop()
	tick := time.NewTicker(syncEvery)
	defer tick.Stop()

	q.wasOnline = q.online()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-probe.C:
			on := q.online()
			if on && !q.wasOnline {
				log.Printf("[sync] connectivity restored")
				if err := q.AttemptSync(ctx); err != nil && !errors.Is(err, ErrSyncInFlight) {
					log.Printf("[sync] replay after reconnect failed: %v", err)
				}
			}
			q.wasOnline = on
		case <-tick.C:
			q.Cleanup()
			if err := q.AttemptSync(ctx); err != nil && !errors.Is(err, ErrSyncInFlight) {
				log.Printf("[sync] periodic sync failed: %v", err)
			}
		}
	}
}

// ---- internals ----

func (q *SyncQueue) online() bool {
	return q.probe != nil && q.probe.Online()
}

func (q *SyncQueue) backoffReady() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.backoff.Ready(q.clock.Now())
}

func (q *SyncQueue) head() (syncqueue.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return syncqueue.Item{}, false
	}
	return q.items[0], true
}

func (q *SyncQueue) handlerFor(op syncqueue.Op) Handler {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handlers[op]
}

func (q *SyncQueue) recordFailure(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].ID == id {
			exhausted := q.items[i].RecordFailure()
			q.persistLocked()
			return exhausted
		}
	}
	return false
}

// finish marks the item terminal and removes it from the active queue. For
// a completed create_order it also drops the matching offline-order mirror.
func (q *SyncQueue) finish(id string, completed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID != id {
			continue
		}
		item := q.items[i]
		if completed {
			_ = item.MarkCompleted()
		} else {
			_ = item.MarkFailed()
		}
		q.items = append(q.items[:i], q.items[i+1:]...)

		if completed && item.Op == syncqueue.OpCreateOrder {
			q.dropOfflineOrderLocked(item.Payload)
		}
		q.persistLocked()
		return
	}
}

func (q *SyncQueue) dropOfflineOrderLocked(payload json.RawMessage) {
	var o order.Order
	if err := json.Unmarshal(payload, &o); err != nil || o.ID == "" {
		return
	}
	for i := range q.orders {
		if q.orders[i].ID == o.ID {
			q.orders = append(q.orders[:i], q.orders[i+1:]...)
			return
		}
	}
}

func (q *SyncQueue) persistLocked() {
	writeJSON(q.store, syncQueueKey, q.items, "queue")
	writeJSON(q.store, offlineOrdersKey, q.orders, "offline orders")
}

func writeJSON(store kv.Store, key string, v any, what string) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[sync] %s marshal failed: %v", what, err)
		return
	}
	if err := store.Set(key, string(data)); err != nil {
		log.Printf("[sync] %s persist failed (continuing in memory): %v", what, err)
	}
}

func (q *SyncQueue) notify(message string, sev Severity) {
	if q.notifier != nil {
		q.notifier.Notify(message, sev)
	}
}
