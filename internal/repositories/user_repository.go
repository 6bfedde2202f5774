package repositories

import (
	"context"

	"shopwave/internal/models"
)

// ProfileRepository defines access to user profiles.
type ProfileRepository interface {
	// Get returns (nil, nil) when the profile does not exist.
	Get(ctx context.Context, uid string) (*models.UserProfile, error)
	Set(ctx context.Context, profile *models.UserProfile) error
	// Merge writes only the present fields, creating the profile if needed.
	Merge(ctx context.Context, uid string, update models.ProfileUpdate) error
}

// CredentialRepository stores locally managed sign-in records.
type CredentialRepository interface {
	// Create fails with ErrConflict when the email is already registered.
	Create(ctx context.Context, cred *models.Credential) error
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	GetByUID(ctx context.Context, uid string) (*models.Credential, error)
	SetAdmin(ctx context.Context, uid string, admin bool) error
	// BumpGeneration increments the token generation and returns the new value.
	BumpGeneration(ctx context.Context, uid string) (int, error)
}
