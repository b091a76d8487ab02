// Package di is the composition root: it wires Cart Store → Session
// Monitor → Offline Queue → Order Orchestrator and exposes them to the UI
// layer via explicit references, not globals.
package di

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	pgadapter "absensi/internal/adapters/out/db"
	fsadapter "absensi/internal/adapters/out/firestore"
	"absensi/internal/adapters/out/sqlitekv"
	uc "absensi/internal/application/usecase"
	cartdom "absensi/internal/domain/cart"
	orderdom "absensi/internal/domain/order"
	"absensi/internal/domain/syncqueue"
	"absensi/internal/domain/visit"
	appcfg "absensi/internal/infra/config"
	"absensi/internal/infra/database"
	firestoreinfra "absensi/internal/infra/firestore"
	"absensi/internal/platform/bus"
	"absensi/internal/platform/clock"
	"absensi/internal/platform/kv"
)

// Container owns the external clients and the wired services.
//
// Init policy (matches the offline-first product):
// - local store: best-effort with in-memory fallback (never fatal)
// - Firestore / Firebase / SecretManager / Postgres: best-effort; missing
//   remote clients leave the client in offline mode rather than failing.
type Container struct {
	Config *appcfg.Config

	// Clients (owned; Close-managed)
	Firestore     *firestoreinfra.ClientWrapper
	FirebaseApp   *firebase.App
	FirebaseAuth  *firebaseauth.Client
	SecretManager *secretmanager.Client
	PG            *database.DB
	LocalStore    kv.Store

	// Core services
	CartBus  *bus.Bus[cartdom.Event]
	Auth     *FirebaseAuthProvider
	Probe    *uc.ManualConnectivity
	Cart     *uc.CartStore
	Visits   *uc.VisitResolver
	Session  *uc.SessionMonitor
	Queue    *uc.SyncQueue
	Orders   *uc.OrderOrchestrator
	Notifier uc.Notifier

	closers []func() error
}

// NewContainer initializes clients and wires the services. OnExpired is the
// navigation hook invoked after idle/auth-loss expiry (may be nil).
func NewContainer(ctx context.Context, onExpired func()) (*Container, error) {
	cfg := appcfg.Load()
	c := &Container{Config: cfg}

	var clientOpts []option.ClientOption
	if cred := strings.TrimSpace(cfg.FirestoreCredentialsFile); cred != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cred))
	} else if cred := strings.TrimSpace(cfg.GCPCreds); cred != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cred))
	}

	// 1) Local durable store (in-memory fallback, never fatal)
	if store, err := sqlitekv.Open(cfg.LocalStorePath); err != nil {
		log.Printf("[di] WARN: local store open failed: %v (falling back to memory)", err)
		c.LocalStore = kv.NewMemory()
	} else {
		c.LocalStore = store
		c.closers = append(c.closers, store.Close)
	}

	// 2) Firestore (best-effort; absent => start offline)
	if fs, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile); err != nil {
		log.Printf("[di] WARN: firestore init failed: %v (starting offline)", err)
	} else {
		c.Firestore = fs
		c.closers = append(c.closers, fs.Close)
	}

	// 3) Firebase App/Auth (best-effort)
	{
		fbCfg := &firebase.Config{ProjectID: cfg.FirebaseProjectID}
		fbApp, err := firebase.NewApp(ctx, fbCfg, clientOpts...)
		if err != nil {
			log.Printf("[di] WARN: firebase app init failed: %v", err)
		} else {
			c.FirebaseApp = fbApp
			if authClient, err := fbApp.Auth(ctx); err != nil {
				log.Printf("[di] WARN: firebase auth init failed: %v", err)
			} else {
				c.FirebaseAuth = authClient
			}
		}
	}

	// 4) Secret Manager (best-effort; only needed to resolve the PG DSN)
	if sm, err := secretmanager.NewClient(ctx, clientOpts...); err != nil {
		log.Printf("[di] WARN: secretmanager init failed: %v", err)
	} else {
		c.SecretManager = sm
		c.closers = append(c.closers, sm.Close)
	}

	// 5) Postgres (best-effort; absent => suggestion lookups degrade)
	if dsn := c.resolvePGDSN(ctx); dsn != "" {
		if db, err := database.NewConnection(dsn); err != nil {
			log.Printf("[di] WARN: postgres init failed: %v (lookups degrade to empty)", err)
		} else {
			c.PG = db
			c.closers = append(c.closers, db.Close)
		}
	} else {
		log.Printf("[di] WARN: no PG DSN configured (lookups degrade to empty)")
	}

	c.wire(cfg, onExpired)
	return c, nil
}

func (c *Container) wire(cfg *appcfg.Config, onExpired func()) {
	clk := clock.System{}
	c.CartBus = bus.New[cartdom.Event]()
	c.Notifier = logNotifier{}
	c.Auth = NewFirebaseAuthProvider(c.FirebaseAuth)
	c.Probe = uc.NewManualConnectivity(c.Firestore != nil)

	var (
		attendance visit.AttendanceRepository
		customers  visit.CustomerRepository
	)
	if c.PG != nil {
		attendance = pgadapter.NewAttendanceRepositoryPG(c.PG.Client)
		customers = pgadapter.NewCustomerRepositoryPG(c.PG.Client)
	}

	if c.PG != nil {
		c.Cart = uc.NewCartStore(c.LocalStore, c.CartBus, clk, pgadapter.NewProductRepositoryPG(c.PG.Client))
	} else {
		c.Cart = uc.NewCartStore(c.LocalStore, c.CartBus, clk, nil)
	}

	c.Visits = uc.NewVisitResolver(attendance, customers, c.Auth, clk)

	sessionCfg := uc.SessionConfig{
		IdleTimeout:   cfg.IdleTimeout,
		WarningLead:   cfg.WarningLead,
		MaxExtensions: cfg.MaxExtensions,
		CartTTL:       cfg.CartTTL,
		PollInterval:  cfg.PollInterval,
		RedirectDelay: cfg.RedirectDelay,
	}
	c.Session = uc.NewSessionMonitor(sessionCfg, c.Auth, c.Cart, c.CartBus, c.Notifier, clk, onExpired)

	syncCfg := uc.SyncConfig{
		Interval:       cfg.SyncInterval,
		ProbeInterval:  cfg.ProbeInterval,
		InterItemDelay: cfg.InterItemDelay,
		Retention:      cfg.Retention,
		BackoffBase:    cfg.BackoffBase,
		BackoffCap:     cfg.BackoffCap,
	}
	c.Queue = uc.NewSyncQueue(syncCfg, c.LocalStore, c.Probe, c.Notifier, clk)

	var transport orderdom.Creator
	if c.Firestore != nil {
		transport = fsadapter.NewOrderRepositoryFS(c.Firestore.Client)
	}
	c.registerSyncHandlers(transport)

	c.Orders = uc.NewOrderOrchestrator(c.Cart, c.Visits, c.Session, c.Queue, transport, c.Auth, c.Probe, c.Notifier, clk)
}

// registerSyncHandlers binds the replay handlers for each queued operation.
func (c *Container) registerSyncHandlers(transport orderdom.Creator) {
	c.Queue.RegisterHandler(syncqueue.OpCreateOrder, func(ctx context.Context, payload json.RawMessage) error {
		if transport == nil {
			return fmt.Errorf("sync: create_order: no transport configured")
		}
		var o orderdom.Order
		if err := json.Unmarshal(payload, &o); err != nil {
			return fmt.Errorf("sync: create_order payload: %w", err)
		}
		_, err := transport.Create(ctx, o)
		return err
	})

	// update_cart: the cart is already durable locally; replay is a no-op
	// acknowledgement kept for causal ordering relative to create_order.
	c.Queue.RegisterHandler(syncqueue.OpUpdateCart, func(ctx context.Context, payload json.RawMessage) error {
		return nil
	})

	c.Queue.RegisterHandler(syncqueue.OpAnalyticsEvent, func(ctx context.Context, payload json.RawMessage) error {
		log.Printf("[analytics] %s", string(payload))
		return nil
	})
}

// resolvePGDSN prefers the env DSN, then the Secret Manager secret.
func (c *Container) resolvePGDSN(ctx context.Context) string {
	if dsn := strings.TrimSpace(c.Config.PGDSN); dsn != "" {
		return dsn
	}
	name := strings.TrimSpace(c.Config.PGDSNSecretName)
	if name == "" || c.SecretManager == nil {
		return ""
	}

	full := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.Config.FirestoreProjectID, name)
	resp, err := c.SecretManager.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: full})
	if err != nil {
		log.Printf("[di] WARN: AccessSecretVersion failed (%s): %v", name, err)
		return ""
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData()))
}

// Run drives the session monitor and the offline queue until ctx is
// cancelled.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Session.Run(ctx) })
	g.Go(func() error { return c.Queue.Run(ctx) })
	return g.Wait()
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[di] close: %v", err)
		}
	}
}

// logNotifier is the default notification sink; the UI layer replaces it
// with a toast renderer.
type logNotifier struct{}

func (logNotifier) Notify(message string, sev uc.Severity) {
	log.Printf("[notify] %s: %s", sev, message)
}
