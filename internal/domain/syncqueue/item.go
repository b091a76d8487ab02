// Package syncqueue defines the offline queue item entity, its status
// machine, and the explicit retry backoff schedule.
package syncqueue

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Op tags what a queued item does when replayed.
type Op string

const (
	OpCreateOrder    Op = "create_order"
	OpUpdateCart     Op = "update_cart"
	OpAnalyticsEvent Op = "analytics_event"
)

// Status of a queue item. Transitions are pending→completed or
// pending→failed only; terminal items are pruned from the active queue.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// MaxRetries is the per-item retry ceiling. The third failure is final.
const MaxRetries = 3

var (
	ErrInvalidItem      = errors.New("syncqueue: invalid item")
	ErrDoneTransition   = errors.New("syncqueue: item already terminal")
	ErrUnknownOperation = errors.New("syncqueue: unknown operation")
)

// Item is one buffered mutating operation awaiting connectivity.
type Item struct {
	ID         string          `json:"id"`
	Op         Op              `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`
	Status     Status          `json:"status"`
}

func NewItem(id string, op Op, payload json.RawMessage, now time.Time) (Item, error) {
	if strings.TrimSpace(id) == "" {
		return Item{}, ErrInvalidItem
	}
	switch op {
	case OpCreateOrder, OpUpdateCart, OpAnalyticsEvent:
	default:
		return Item{}, ErrUnknownOperation
	}
	return Item{
		ID:         strings.TrimSpace(id),
		Op:         op,
		Payload:    payload,
		EnqueuedAt: now,
		Status:     StatusPending,
	}, nil
}

// MarkCompleted moves pending→completed.
func (i *Item) MarkCompleted() error {
	if i.Status != StatusPending {
		return ErrDoneTransition
	}
	i.Status = StatusCompleted
	return nil
}

// MarkFailed moves pending→failed.
func (i *Item) MarkFailed() error {
	if i.Status != StatusPending {
		return ErrDoneTransition
	}
	i.Status = StatusFailed
	return nil
}

// RecordFailure counts one failed replay attempt and reports whether the
// retry ceiling is now reached.
func (i *Item) RecordFailure() (exhausted bool) {
	i.RetryCount++
	return i.RetryCount >= MaxRetries
}

// Expired reports whether the item has aged past the retention window.
func (i Item) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(i.EnqueuedAt) > retention
}
