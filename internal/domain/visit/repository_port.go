package visit

import (
	"context"
	"time"
)

// AttendanceRepository reads check-in/check-out records for one actor.
type AttendanceRepository interface {
	// ListByActor returns visits with CheckInAt in [from, to), any order.
	ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]Visit, error)
}

// CustomerRepository reads customer master data.
//
// Not-found policy: GetByID returns (nil, nil).
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	ListByActor(ctx context.Context, actorID string) ([]Customer, error)
}
