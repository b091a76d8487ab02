// Package clock abstracts current time so the session monitor, visit cache
// and sync backoff can be tested without real timers.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }
