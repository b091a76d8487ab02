// Package usecase wires the cart store, visit context resolver, session
// monitor, offline queue and order orchestrator together. Each service is
// constructed explicitly and passed its collaborators; there is no ambient
// global state.
package usecase

import (
	"context"
	"sync/atomic"
)

// Actor is the currently authenticated user. Nil actor means no session.
type Actor struct {
	ID     string
	Role   string
	Status string
}

// AuthProvider observes actor presence/identity. This module never mutates
// auth state.
//
// Unauthenticated policy: return (nil, nil).
type AuthProvider interface {
	CurrentActor(ctx context.Context) (*Actor, error)
}

// Severity of a user-facing notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier is the one-way fire-and-forget UI sink for warnings and errors.
type Notifier interface {
	Notify(message string, severity Severity)
}

// ConnectivityProbe reports whether the external API is reachable.
type ConnectivityProbe interface {
	Online() bool
}

// ManualConnectivity is a probe flipped by the outer shell (the platform
// layer knows when the network comes and goes; this core only asks).
type ManualConnectivity struct {
	online atomic.Bool
}

func NewManualConnectivity(online bool) *ManualConnectivity {
	p := &ManualConnectivity{}
	p.online.Store(online)
	return p
}

func (p *ManualConnectivity) Online() bool      { return p.online.Load() }
func (p *ManualConnectivity) SetOnline(on bool) { p.online.Store(on) }
