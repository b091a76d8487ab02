package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	visitdom "absensi/internal/domain/visit"
)

type AttendanceRepositoryPG struct {
	DB *sql.DB
}

func NewAttendanceRepositoryPG(db *sql.DB) *AttendanceRepositoryPG {
	return &AttendanceRepositoryPG{DB: db}
}

// ListByActor returns the actor's visits with check-in in [from, to).
// check_out_at is NULL while the actor is still checked in.
func (r *AttendanceRepositoryPG) ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]visitdom.Visit, error) {
	const q = `
SELECT id, customer_id, check_in_at, check_out_at
FROM attendance
WHERE user_id = $1 AND check_in_at >= $2 AND check_in_at < $3
ORDER BY check_in_at DESC`

	rows, err := r.DB.QueryContext(ctx, q, strings.TrimSpace(actorID), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []visitdom.Visit
	for rows.Next() {
		var v visitdom.Visit
		var checkOut sql.NullTime
		if err := rows.Scan(&v.ID, &v.CustomerID, &v.CheckInAt, &checkOut); err != nil {
			return nil, err
		}
		if checkOut.Valid {
			t := checkOut.Time
			v.CheckOutAt = &t
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
