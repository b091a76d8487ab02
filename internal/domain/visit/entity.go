// Package visit defines attendance check-in records, customers, and the
// suggestion policy that attributes a quick order to a customer.
package visit

import (
	"sort"
	"time"
)

// Visit is one attendance record. CheckOutAt is nil while the actor is
// still checked in.
type Visit struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId"`
	CheckInAt  time.Time  `json:"checkInAt"`
	CheckOutAt *time.Time `json:"checkOutAt,omitempty"`
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// RecentCustomer is a customer seen in the trailing visit window.
type RecentCustomer struct {
	Customer    Customer  `json:"customer"`
	LastVisitAt time.Time `json:"lastVisitAt"`
}

// SuggestionSource says why a customer was suggested.
type SuggestionSource string

const (
	SourceActiveVisit SuggestionSource = "active_visit"
	SourceRecentVisit SuggestionSource = "recent_visit"
)

// Suggestion is the customer a quick order should default to.
type Suggestion struct {
	Customer Customer         `json:"customer"`
	Source   SuggestionSource `json:"source"`
	VisitID  string           `json:"visitId,omitempty"`
}

// ActiveOf picks the active visit from vs: a check-in with no check-out on
// the same calendar day as now (local time), most recent check-in wins.
// Returns nil if there is none.
func ActiveOf(vs []Visit, now time.Time) *Visit {
	var active *Visit
	for i := range vs {
		v := &vs[i]
		if v.CheckOutAt != nil {
			continue
		}
		if !sameDay(v.CheckInAt, now) {
			continue
		}
		if active == nil || v.CheckInAt.After(active.CheckInAt) {
			active = v
		}
	}
	if active == nil {
		return nil
	}
	cp := *active
	return &cp
}

// RecentCustomerIDs returns distinct customer ids from vs, most recent visit
// first, first occurrence wins, capped at limit (limit <= 0 means no cap).
func RecentCustomerIDs(vs []Visit, limit int) []RecentCustomer {
	sorted := make([]Visit, len(vs))
	copy(sorted, vs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CheckInAt.After(sorted[j].CheckInAt)
	})

	seen := map[string]bool{}
	var out []RecentCustomer
	for _, v := range sorted {
		if v.CustomerID == "" || seen[v.CustomerID] {
			continue
		}
		seen[v.CustomerID] = true
		out = append(out, RecentCustomer{
			Customer:    Customer{ID: v.CustomerID},
			LastVisitAt: v.CheckInAt,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
