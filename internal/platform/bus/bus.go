// Package bus provides a small typed publish/subscribe channel.
//
// The cart store publishes its change events here and UI renderers (outside
// this module) consume them. Delivery is best-effort: a subscriber that
// panics is recovered and logged, and never prevents delivery to the others.
package bus

import (
	"log"
	"sync"
)

// Bus fans out events of type E to its subscribers, in subscription order.
//
// The subscriber list is copied before each dispatch, so handlers may
// subscribe or unsubscribe during delivery without corrupting iteration.
type Bus[E any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[E]
}

type subscriber[E any] struct {
	id int
	fn func(E)
}

// Subscription identifies one subscriber for later removal.
type Subscription struct {
	id int
}

func New[E any]() *Bus[E] {
	return &Bus[E]{}
}

// Subscribe registers fn and returns a handle for Unsubscribe.
// A nil fn is ignored and yields a handle that unsubscribes nothing.
func (b *Bus[E]) Subscribe(fn func(E)) Subscription {
	if fn == nil {
		return Subscription{id: -1}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscriber[E]{id: b.nextID, fn: fn})
	return Subscription{id: b.nextID}
}

func (b *Bus[E]) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.subs {
		if b.subs[i].id == s.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every current subscriber.
func (b *Bus[E]) Publish(ev E) {
	b.mu.Lock()
	snapshot := make([]subscriber[E], len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		deliver(s, ev)
	}
}

func deliver[E any](s subscriber[E], ev E) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[bus] subscriber %d panicked: %v", s.id, r)
		}
	}()
	s.fn(ev)
}
