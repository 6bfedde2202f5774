package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Identity providers accepted by IDENTITY_PROVIDER.
const (
	IdentityLocal    = "local"
	IdentityFirebase = "firebase"
)

// Config holds application configuration from environment variables.
type Config struct {
	AppPort string

	// Document store
	StoreDriver string
	DatabaseDSN string
	SQLitePath  string

	// Firebase (Firestore store and/or identity)
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Identity
	IdentityProvider       string
	JWTSecret              string
	TokenTTL               time.Duration
	AdminClaim             string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Messaging; empty disables order events
	RabbitMQURL string

	// OpenTelemetry
	OTELExporterOTLPEndpoint string
	OTELExporterOTLPHeaders  string
	OTELExporterOTLPInsecure bool
	OTELServiceName          string
	OTELServiceVersion       string

	// Storefront
	CatalogCacheTTL time.Duration
	SessionTTL      time.Duration
	GuestCartDir    string
	SeedProducts    bool
}

// Load reads an optional .env file, then the environment, falling back to defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// .env is optional; only complain when it exists but cannot be parsed
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=shopwave port=5432 sslmode=disable")
	v.SetDefault("SQLITE_PATH", "shopwave.db")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("IDENTITY_PROVIDER", IdentityLocal)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("ADMIN_CLAIM", "admin")
	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_HEADERS", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_SERVICE_NAME", "shopwave")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("CATALOG_CACHE_TTL", 45*time.Second)
	v.SetDefault("SESSION_TTL", 30*time.Minute)
	v.SetDefault("GUEST_CART_DIR", "")
	v.SetDefault("SEED_PRODUCTS", true)
}

// FromViper builds a Config from the values held by v.
func FromViper(v *viper.Viper) *Config {
	appPort := v.GetString("APP_PORT")
	if appPort != "" && !strings.Contains(appPort, ":") {
		appPort = ":" + appPort
	}

	return &Config{
		AppPort:                  appPort,
		StoreDriver:              strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DatabaseDSN:              v.GetString("DATABASE_DSN"),
		SQLitePath:               v.GetString("SQLITE_PATH"),
		FirebaseProjectID:        strings.TrimSpace(v.GetString("FIREBASE_PROJECT_ID")),
		FirebaseCredentialsFile:  strings.TrimSpace(v.GetString("FIREBASE_CREDENTIALS_FILE")),
		IdentityProvider:         strings.ToLower(strings.TrimSpace(v.GetString("IDENTITY_PROVIDER"))),
		JWTSecret:                v.GetString("JWT_SECRET"),
		TokenTTL:                 v.GetDuration("TOKEN_TTL"),
		AdminClaim:               v.GetString("ADMIN_CLAIM"),
		BootstrapAdminEmail:      strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminPassword:   v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		RabbitMQURL:              v.GetString("RABBITMQ_URL"),
		OTELExporterOTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELExporterOTLPHeaders:  v.GetString("OTEL_EXPORTER_OTLP_HEADERS"),
		OTELExporterOTLPInsecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		OTELServiceName:          v.GetString("OTEL_SERVICE_NAME"),
		OTELServiceVersion:       v.GetString("OTEL_SERVICE_VERSION"),
		CatalogCacheTTL:          v.GetDuration("CATALOG_CACHE_TTL"),
		SessionTTL:               v.GetDuration("SESSION_TTL"),
		GuestCartDir:             v.GetString("GUEST_CART_DIR"),
		SeedProducts:             v.GetBool("SEED_PRODUCTS"),
	}
}

// NeedsFirebase reports whether any configured component talks to Firebase.
func (c *Config) NeedsFirebase() bool {
	return c.StoreDriver == StoreFirestore || c.IdentityProvider == IdentityFirebase
}
