package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"absensi/internal/apperr"
	"absensi/internal/domain/visit"
	"absensi/internal/platform/clock"
)

const (
	activeVisitCacheTTL = 5 * time.Minute
	recentVisitWindow   = 7 * 24 * time.Hour
)

// VisitResolver suggests which customer a quick order should be attributed
// to. Suggestions are a convenience: every lookup failure degrades to an
// empty result and a log line, never an error to the caller.
type VisitResolver struct {
	attendance visit.AttendanceRepository
	customers  visit.CustomerRepository
	auth       AuthProvider
	clock      clock.Clock

	mu          sync.Mutex
	cachedVisit *visit.Visit
	cachedAt    time.Time
	cacheSet    bool
	nameCache   map[string]visit.Customer // id -> customer, filled by recent lookups
}

func NewVisitResolver(attendance visit.AttendanceRepository, customers visit.CustomerRepository, auth AuthProvider, clk clock.Clock) *VisitResolver {
	if clk == nil {
		clk = clock.System{}
	}
	return &VisitResolver{
		attendance: attendance,
		customers:  customers,
		auth:       auth,
		clock:      clk,
		nameCache:  map[string]visit.Customer{},
	}
}

// ActiveVisit returns the current actor's check-in without a check-out for
// today, most recent first, or nil. The result is cached for five minutes.
func (r *VisitResolver) ActiveVisit(ctx context.Context) *visit.Visit {
	now := r.clock.Now()

	r.mu.Lock()
	if r.cacheSet && now.Sub(r.cachedAt) < activeVisitCacheTTL {
		v := r.cachedVisit
		r.mu.Unlock()
		if v == nil {
			return nil
		}
		cp := *v
		return &cp
	}
	r.mu.Unlock()

	active := r.lookupActiveVisit(ctx, now)

	r.mu.Lock()
	r.cachedVisit = active
	r.cachedAt = now
	r.cacheSet = true
	r.mu.Unlock()

	if active == nil {
		return nil
	}
	cp := *active
	return &cp
}

func (r *VisitResolver) lookupActiveVisit(ctx context.Context, now time.Time) *visit.Visit {
	actor := r.currentActor(ctx)
	if actor == nil || r.attendance == nil {
		return nil
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	vs, err := r.attendance.ListByActor(ctx, actor.ID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		log.Printf("[visit] active visit lookup failed: %v", err)
		return nil
	}
	return visit.ActiveOf(vs, now)
}

// RecentCustomers returns distinct customers visited in the trailing seven
// days, most recent first, capped at limit.
func (r *VisitResolver) RecentCustomers(ctx context.Context, limit int) []visit.RecentCustomer {
	actor := r.currentActor(ctx)
	if actor == nil || r.attendance == nil {
		return nil
	}

	now := r.clock.Now()
	vs, err := r.attendance.ListByActor(ctx, actor.ID, now.Add(-recentVisitWindow), now)
	if err != nil {
		log.Printf("[visit] recent customers lookup failed: %v", err)
		return nil
	}

	recents := visit.RecentCustomerIDs(vs, limit)
	for i := range recents {
		if c := r.resolveCustomer(ctx, recents[i].Customer.ID); c != nil {
			recents[i].Customer = *c
		}
	}
	return recents
}

// SuggestedCustomer prefers "where you are right now" over "where you
// were": the active-visit customer wins, then the most recent one.
func (r *VisitResolver) SuggestedCustomer(ctx context.Context) *visit.Suggestion {
	if active := r.ActiveVisit(ctx); active != nil {
		c := r.resolveCustomer(ctx, active.CustomerID)
		if c == nil {
			c = &visit.Customer{ID: active.CustomerID}
		}
		return &visit.Suggestion{Customer: *c, Source: visit.SourceActiveVisit, VisitID: active.ID}
	}

	recents := r.RecentCustomers(ctx, 1)
	if len(recents) == 0 {
		return nil
	}
	return &visit.Suggestion{Customer: recents[0].Customer, Source: visit.SourceRecentVisit}
}

// CustomerByID checks the recent-customers cache first, then falls back to
// a direct lookup. Unlike the suggestion paths this returns the error:
// order completion must treat resolution failure as fatal.
func (r *VisitResolver) CustomerByID(ctx context.Context, id string) (*visit.Customer, error) {
	r.mu.Lock()
	if c, ok := r.nameCache[id]; ok {
		r.mu.Unlock()
		cp := c
		return &cp, nil
	}
	r.mu.Unlock()

	if r.customers == nil {
		return nil, nil
	}
	c, err := r.customers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("visit: customer lookup %s: %w", id, err)
	}
	if c == nil {
		return nil, nil
	}

	r.mu.Lock()
	r.nameCache[c.ID] = *c
	r.mu.Unlock()
	return c, nil
}

// ClearCache drops the active-visit and customer caches.
func (r *VisitResolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cachedVisit = nil
	r.cacheSet = false
	r.nameCache = map[string]visit.Customer{}
}

// RefreshCache re-reads the active visit immediately (e.g. right after a
// check-in or check-out).
func (r *VisitResolver) RefreshCache(ctx context.Context) *visit.Visit {
	r.ClearCache()
	return r.ActiveVisit(ctx)
}

func (r *VisitResolver) resolveCustomer(ctx context.Context, id string) *visit.Customer {
	c, err := r.CustomerByID(ctx, id)
	if err != nil {
		log.Printf("[visit] customer %s resolve failed: %v", id, err)
		return nil
	}
	return c
}

func (r *VisitResolver) currentActor(ctx context.Context) *Actor {
	if r.auth == nil {
		return nil
	}
	actor, err := r.auth.CurrentActor(ctx)
	if err != nil {
		log.Printf("[visit] actor lookup failed (%s): %v", apperr.Kind(err), err)
		return nil
	}
	return actor
}
