// Package config resolves the application configuration from environment
// variables, with defaults that keep local development working.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the client core.
type Config struct {
	// GCP
	GCPCreds                 string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string

	// Postgres (catalog / customers / attendance). The DSN may also be
	// resolved from Secret Manager, see PGDSNSecretName.
	PGDSN           string
	PGDSNSecretName string

	// Local durable storage
	LocalStorePath string

	// Session policy
	IdleTimeout   time.Duration
	WarningLead   time.Duration
	MaxExtensions int
	CartTTL       time.Duration
	PollInterval  time.Duration
	RedirectDelay time.Duration

	// Offline sync policy
	SyncInterval   time.Duration
	ProbeInterval  time.Duration
	InterItemDelay time.Duration
	Retention      time.Duration
	BackoffBase    time.Duration
	BackoffCap     time.Duration
}

// Load reads the environment and returns the resolved Config.
func Load() *Config {
	defaultProject := getenvDefault("GCP_PROJECT_ID", "absensi-app")

	return &Config{
		GCPCreds:                 os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		FirestoreProjectID:       getenvDefault("FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirebaseProjectID:        getenvDefault("FIREBASE_PROJECT_ID", defaultProject),

		PGDSN:           os.Getenv("PG_DSN"),
		PGDSNSecretName: os.Getenv("PG_DSN_SECRET_NAME"),

		LocalStorePath: getenvDefault("LOCAL_STORE_PATH", "absensi-local.db"),

		IdleTimeout:   getenvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		WarningLead:   getenvDuration("SESSION_WARNING_LEAD", 5*time.Minute),
		MaxExtensions: getenvInt("SESSION_MAX_EXTENSIONS", 3),
		CartTTL:       getenvDuration("CART_TTL", 24*time.Hour),
		PollInterval:  getenvDuration("SESSION_POLL_INTERVAL", 60*time.Second),
		RedirectDelay: getenvDuration("SESSION_REDIRECT_DELAY", 3*time.Second),

		SyncInterval:   getenvDuration("SYNC_INTERVAL", 5*time.Minute),
		ProbeInterval:  getenvDuration("SYNC_PROBE_INTERVAL", 5*time.Second),
		InterItemDelay: getenvDuration("SYNC_INTER_ITEM_DELAY", 100*time.Millisecond),
		Retention:      getenvDuration("SYNC_RETENTION", 7*24*time.Hour),
		BackoffBase:    getenvDuration("SYNC_BACKOFF_BASE", time.Second),
		BackoffCap:     getenvDuration("SYNC_BACKOFF_CAP", 30*time.Second),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
