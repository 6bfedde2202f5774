package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"shopwave/internal/cart"
	"shopwave/internal/database"
	"shopwave/internal/handlers"
	"shopwave/internal/identity"
	"shopwave/internal/metrics"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
	"shopwave/internal/services"
	"shopwave/pkg/config"
	"shopwave/pkg/firebase"
	"shopwave/pkg/rabbitmq"
)

// backend is the document store the process runs on, with whatever must be closed
// on the way out.
type backend struct {
	store    *repositories.Store
	db       *gorm.DB
	firebase *firebase.Clients
}

func (b *backend) Close() {
	if b.db != nil {
		if err := database.Close(b.db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	if err := b.firebase.Close(); err != nil {
		log.Printf("Error closing Firebase clients: %v", err)
	}
}

// openBackend connects the store selected by STORE_DRIVER. Firebase clients are
// created here as well when the identity provider needs them.
func openBackend(ctx context.Context, cfg *config.Config, m *metrics.AppMetrics) (*backend, error) {
	b := &backend{}
	if cfg.NeedsFirebase() {
		clients, err := firebase.NewClients(ctx, firebase.Config{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			WithFirestore:   cfg.StoreDriver == config.StoreFirestore,
			WithAuth:        cfg.IdentityProvider == config.IdentityFirebase,
		})
		if err != nil {
			return nil, err
		}
		b.firebase = clients
	}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		b.store = repositories.NewMockStore(m)
	case config.StoreSQLite, config.StorePostgres:
		db, err := database.Open(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.db = db
		if err := database.Migrate(db, repositories.GORMModels()...); err != nil {
			b.Close()
			return nil, err
		}
		b.store = repositories.NewGORMStore(db, m)
	case config.StoreFirestore:
		b.store = repositories.NewFirestoreStore(b.firebase.Firestore, m)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	log.Printf("Document store: %s", b.store.Backend)
	return b, nil
}

// minJWTSecretLen is the shortest HS256 secret the local provider accepts.
const minJWTSecretLen = 16

var placeholderSecrets = map[string]bool{"change-me": true, "secret": true, "changeme": true}

// checkJWTSecret refuses to sign local tokens with an empty, placeholder or short secret.
func checkJWTSecret(secret string) error {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return errors.New("JWT_SECRET must be set when IDENTITY_PROVIDER=local")
	case placeholderSecrets[strings.ToLower(secret)]:
		return fmt.Errorf("JWT_SECRET %q is a placeholder", secret)
	case len(secret) < minJWTSecretLen:
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen)
	}
	return nil
}

// newIdentity returns the token verifier and, for local identities, the provider
// that also signs users up and in.
func newIdentity(ctx context.Context, cfg *config.Config, b *backend) (identity.Provider, *identity.LocalProvider, error) {
	switch cfg.IdentityProvider {
	case config.IdentityFirebase:
		return identity.NewFirebaseProvider(b.firebase.Auth, cfg.AdminClaim), nil, nil
	case config.IdentityLocal:
		if err := checkJWTSecret(cfg.JWTSecret); err != nil {
			return nil, nil, err
		}
		local := identity.NewLocalProvider(b.store.Credentials, cfg.JWTSecret, cfg.TokenTTL, cfg.AdminClaim)
		if cfg.BootstrapAdminEmail != "" {
			admin, err := local.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to bootstrap admin %s: %w", cfg.BootstrapAdminEmail, err)
			}
			log.Printf("Administrator %s (%s) is ready", admin.Email, admin.UID)
		}
		return local, local, nil
	default:
		return nil, nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// --- Metrics ---
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	// --- Document store ---
	b, err := openBackend(ctx, cfg, appMetrics)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer b.Close()

	if cfg.SeedProducts {
		seedProducts(ctx, b.store.Products)
	}

	provider, local, err := newIdentity(ctx, cfg, b)
	if err != nil {
		log.Fatalf("Failed to initialize identity provider: %v", err)
	}

	// --- Order events ---
	var publisher services.OrderEventPublisher
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		if err := mqClient.ConsumeOrderEvents(consumerCtx, services.OrderEventHandler(appMetrics)); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
		publisher = mqClient
	} else {
		log.Println("RABBITMQ_URL not set, order events are disabled")
	}

	// --- Sessions ---
	storage := cart.MemoryStorageFactory()
	if cfg.GuestCartDir != "" {
		storage = cart.FileStorageFactory(cfg.GuestCartDir)
	}
	sessions := cart.NewManager(cart.ManagerOptions{
		Carts:   b.store.Carts,
		Storage: storage,
		TTL:     cfg.SessionTTL,
		Metrics: appMetrics,
	})

	// --- HTTP ---
	app := fiber.New()
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"store":    b.store.Backend,
			"sessions": sessions.Len(),
			"events":   publisher != nil,
		})
	})

	handlers.SetupRoutes(app, handlers.Services{
		Auth:     services.NewAuthService(provider, local),
		Products: services.NewProductService(b.store.Products, cfg.CatalogCacheTTL, appMetrics),
		Profiles: services.NewProfileService(b.store.Profiles),
		Orders:   services.NewOrderService(b.store.Orders, b.store.Profiles, publisher, appMetrics),
		Sessions: sessions,
		Metrics:  appMetrics,
	})

	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	stopConsumer()

	// pending remote cart writes get a bounded grace period
	closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := sessions.Close(closeCtx); err != nil {
		log.Printf("Sessions closed with pending cart writes: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// seedProducts fills an empty catalog with a few demo products.
func seedProducts(ctx context.Context, repo repositories.ProductRepository) int {
	existing, err := repo.ListAll(ctx)
	if err != nil {
		log.Printf("Error checking catalog before seeding: %v", err)
		return 0
	}
	if len(existing) > 0 {
		return 0
	}

	products := []models.Product{
		{
			Name: "Classic Leather Wallet", Description: "Hand-stitched full grain leather wallet.",
			Price: 49.99, ImageURL: "https://placehold.co/600x400?text=Wallet",
			Category: "Accessories", Featured: true, Stock: 25, Condition: models.ConditionNew,
		},
		{
			Name: "Ceramic Coffee Mug", Description: "Stoneware mug, 350ml.",
			Price: 12.50, ImageURL: "https://placehold.co/600x400?text=Mug",
			Category: "Kitchen", Stock: 80, Condition: models.ConditionNew,
		},
		{
			Name: "Vintage Film Camera", Description: "35mm rangefinder, tested and working.",
			Price: 189.00, ImageURL: "https://placehold.co/600x400?text=Camera",
			Images:   []string{"https://placehold.co/600x400?text=Camera+Back"},
			Category: "Electronics", Featured: true, Stock: 1, Condition: models.ConditionUsed,
		},
	}

	seeded := 0
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
			continue
		}
		log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
		seeded++
	}
	return seeded
}
