package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"absensi/internal/apperr"
	cartdom "absensi/internal/domain/cart"
	"absensi/internal/platform/bus"
	"absensi/internal/platform/clock"
)

// Idle session states.
type IdleState string

const (
	IdleActive  IdleState = "active"
	IdleWarning IdleState = "warning"
	IdleExpired IdleState = "expired"
)

// Cart age states, independent of the idle machine.
type CartAgeState string

const (
	CartFresh   CartAgeState = "fresh"
	CartWarning CartAgeState = "warning"
	CartExpired CartAgeState = "expired"
)

type SessionConfig struct {
	IdleTimeout   time.Duration // idle limit since last activity
	WarningLead   time.Duration // warning fires at this much time remaining
	MaxExtensions int           // one-click extensions per browser session
	CartTTL       time.Duration // cart expiry since last cart modification
	PollInterval  time.Duration
	RedirectDelay time.Duration // delay before the login redirect on expiry
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTimeout:   30 * time.Minute,
		WarningLead:   5 * time.Minute,
		MaxExtensions: 3,
		CartTTL:       24 * time.Hour,
		PollInterval:  60 * time.Second,
		RedirectDelay: 3 * time.Second,
	}
}

// SessionMonitor enforces the idle-session and cart-age policies. It only
// observes actor presence and cart age; clearing an expired cart is
// delegated to the CartStore, never done by direct storage manipulation.
//
// Idle expiry does NOT clear the cart. The two policies are independent.
type SessionMonitor struct {
	cfg       sessionDeps
	mu        sync.Mutex
	sessionID string

	lastActivityAt time.Time
	extensionsUsed int
	idleState      IdleState
	cartState      CartAgeState
	stopped        bool
}

type sessionDeps struct {
	SessionConfig
	auth      AuthProvider
	cart      *CartStore
	notifier  Notifier
	clock     clock.Clock
	onExpired func() // navigation hook to the login entry point
}

// NewSessionMonitor starts in Active/Fresh with the clock's now as the
// first activity. Cart change events count as user activity, so the monitor
// subscribes to the cart bus. onExpired may be nil.
func NewSessionMonitor(cfg SessionConfig, auth AuthProvider, cart *CartStore, cartBus *bus.Bus[cartdom.Event], notifier Notifier, clk clock.Clock, onExpired func()) *SessionMonitor {
	if clk == nil {
		clk = clock.System{}
	}
	m := &SessionMonitor{
		cfg: sessionDeps{
			SessionConfig: cfg,
			auth:          auth,
			cart:          cart,
			notifier:      notifier,
			clock:         clk,
			onExpired:     onExpired,
		},
		sessionID:      uuid.NewString(),
		lastActivityAt: clk.Now(),
		idleState:      IdleActive,
		cartState:      CartFresh,
	}
	if cartBus != nil {
		cartBus.Subscribe(func(cartdom.Event) { m.RecordActivity() })
	}
	return m
}

// SessionState is a read-only snapshot of the monitor.
type SessionState struct {
	SessionID      string
	Idle           IdleState
	Cart           CartAgeState
	LastActivityAt time.Time
	ExtensionsUsed int
}

func (m *SessionMonitor) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SessionState{
		SessionID:      m.sessionID,
		Idle:           m.idleState,
		Cart:           m.cartState,
		LastActivityAt: m.lastActivityAt,
		ExtensionsUsed: m.extensionsUsed,
	}
}

func (m *SessionMonitor) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// RecordActivity resets the idle timer. Callers invoke it on actual user
// interaction (click, key press, scroll, touch); a page merely becoming
// visible again is not activity.
func (m *SessionMonitor) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idleState == IdleExpired {
		return
	}
	m.lastActivityAt = m.cfg.clock.Now()
	m.idleState = IdleActive
}

// Extend grants more idle time from the warning prompt, capped per browser
// session. Exceeding the cap forces expiry.
func (m *SessionMonitor) Extend() error {
	m.mu.Lock()
	if m.idleState == IdleExpired {
		m.mu.Unlock()
		return fmt.Errorf("session: already expired: %w", apperr.ErrSessionInvalid)
	}
	if m.extensionsUsed >= m.cfg.MaxExtensions {
		m.expireLocked("batas perpanjangan sesi tercapai")
		m.mu.Unlock()
		return fmt.Errorf("session: extension limit reached: %w", apperr.ErrSessionInvalid)
	}
	m.extensionsUsed++
	m.lastActivityAt = m.cfg.clock.Now()
	m.idleState = IdleActive
	used := m.extensionsUsed
	m.mu.Unlock()

	m.notify(fmt.Sprintf("Sesi diperpanjang (%d/%d)", used, m.cfg.MaxExtensions), SeverityInfo)
	return nil
}

// Valid reports whether the current operation may proceed: not idle-expired
// and an authenticated actor present.
func (m *SessionMonitor) Valid(ctx context.Context) bool {
	m.mu.Lock()
	expired := m.idleState == IdleExpired
	m.mu.Unlock()
	if expired {
		return false
	}
	if m.cfg.auth == nil {
		return false
	}
	actor, err := m.cfg.auth.CurrentActor(ctx)
	return err == nil && actor != nil
}

// Tick advances both state machines to now. Notifications fire exactly once
// per state entry, not once per poll.
func (m *SessionMonitor) Tick(ctx context.Context, now time.Time) {
	m.tickIdle(ctx, now)
	m.tickCart(now)
}

func (m *SessionMonitor) tickIdle(ctx context.Context, now time.Time) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}

	// Auth loss ends the session immediately: validity cannot be assumed
	// without an authenticated actor.
	if m.cfg.auth != nil {
		actor, err := m.cfg.auth.CurrentActor(ctx)
		if err != nil || actor == nil {
			m.expireLocked("sesi berakhir: autentikasi hilang")
			m.mu.Unlock()
			return
		}
	}

	remaining := m.cfg.IdleTimeout - now.Sub(m.lastActivityAt)
	switch {
	case remaining <= 0:
		m.expireLocked("Sesi berakhir karena tidak ada aktivitas. Silakan login kembali.")
		m.mu.Unlock()
	case remaining <= m.cfg.WarningLead && m.idleState == IdleActive:
		m.idleState = IdleWarning
		m.mu.Unlock()
		m.notify(fmt.Sprintf("Sesi akan berakhir dalam %d menit. Perpanjang?", int(remaining.Minutes())+1), SeverityWarning)
	default:
		m.mu.Unlock()
	}
}

func (m *SessionMonitor) tickCart(now time.Time) {
	st := m.cfg.cart.State()

	m.mu.Lock()
	if st.IsEmpty() {
		m.cartState = CartFresh
		m.mu.Unlock()
		return
	}

	remaining := m.cfg.CartTTL - now.Sub(st.UpdatedAt)
	switch {
	case remaining <= 0 && m.cartState != CartExpired:
		m.cartState = CartExpired
		m.mu.Unlock()
		// Clearing goes through the cart store so it persists and emits
		// its own cleared event. No navigation for cart expiry.
		m.cfg.cart.Clear()
		m.notify("Keranjang kedaluwarsa dan telah dikosongkan.", SeverityWarning)
	case remaining > 0 && remaining <= m.cfg.WarningLead && m.cartState == CartFresh:
		m.cartState = CartWarning
		m.mu.Unlock()
		m.notify("Keranjang akan kedaluwarsa sebentar lagi. Selesaikan pesanan Anda.", SeverityWarning)
	case remaining > m.cfg.WarningLead && m.cartState != CartFresh:
		// A cart mutation pushed the ttl out again.
		m.cartState = CartFresh
		m.mu.Unlock()
	default:
		m.mu.Unlock()
	}
}

// expireLocked transitions to Expired, stops the timers, notifies once and
// schedules the login redirect. Caller holds m.mu; the notification itself
// is delivered after the state change, synchronously, so it fires exactly
// once per expiry and not once per poll tick.
func (m *SessionMonitor) expireLocked(message string) {
	if m.idleState == IdleExpired {
		return
	}
	m.idleState = IdleExpired
	m.stopped = true
	log.Printf("[session] expired: %s", message)
	m.notify(message, SeverityError)

	if m.cfg.onExpired != nil {
		onExpired := m.cfg.onExpired
		delay := m.cfg.RedirectDelay
		go func() {
			if delay > 0 {
				time.Sleep(delay)
			}
			onExpired()
		}()
	}
}

// Run polls on the configured interval until ctx is cancelled or the
// session expires.
func (m *SessionMonitor) Run(ctx context.Context) error {
	interval := m.cfg.PollInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx, m.cfg.clock.Now())
			m.mu.Lock()
			stopped := m.stopped
			m.mu.Unlock()
			if stopped {
				return nil
			}
		}
	}
}

func (m *SessionMonitor) notify(message string, sev Severity) {
	if m.cfg.notifier != nil {
		m.cfg.notifier.Notify(message, sev)
	}
}
