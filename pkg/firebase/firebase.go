package firebase

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config holds Firebase project details.
type Config struct {
	ProjectID       string
	CredentialsFile string // optional; mainly for local dev

	WithFirestore bool
	WithAuth      bool
}

// Clients owns the Firebase app and the clients built from it.
type Clients struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *firebaseauth.Client
}

// NewClients initializes the Firebase app and the requested clients.
// FIRESTORE_EMULATOR_HOST and FIREBASE_AUTH_EMULATOR_HOST are honoured by the SDKs.
func NewClients(ctx context.Context, cfg Config) (*Clients, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firebase: project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: app init failed (project=%s): %w", cfg.ProjectID, err)
	}
	c := &Clients{App: app}

	if cfg.WithFirestore {
		fsClient, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase: firestore client init failed (project=%s): %w", cfg.ProjectID, err)
		}
		c.Firestore = fsClient
	}

	if cfg.WithAuth {
		authClient, err := app.Auth(ctx)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("firebase: auth client init failed: %w", err)
		}
		c.Auth = authClient
	}

	log.Printf("Firebase initialized (project=%s firestore=%t auth=%t)", cfg.ProjectID, c.Firestore != nil, c.Auth != nil)
	return c, nil
}

// Close releases the clients that hold connections.
func (c *Clients) Close() error {
	if c == nil || c.Firestore == nil {
		return nil
	}
	if err := c.Firestore.Close(); err != nil {
		return fmt.Errorf("firebase: failed to close firestore client: %w", err)
	}
	return nil
}
