package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// FirestoreProfileRepository implements ProfileRepository on users/{uid}.
type FirestoreProfileRepository struct {
	Client  *firestore.Client
	metrics *metrics.AppMetrics
}

func NewFirestoreProfileRepository(client *firestore.Client, m *metrics.AppMetrics) *FirestoreProfileRepository {
	return &FirestoreProfileRepository{Client: client, metrics: m}
}

func (r *FirestoreProfileRepository) doc(uid string) (*firestore.DocumentRef, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("profile_repository_fs: firestore client is nil")
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, errors.New("profile_repository_fs: uid is empty")
	}
	return r.Client.Collection("users").Doc(uid), nil
}

// Get returns (nil, nil) if not found (nil policy).
func (r *FirestoreProfileRepository) Get(ctx context.Context, uid string) (_ *models.UserProfile, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "get", "users")(&err)
	ref, err := r.doc(uid)
	if err != nil {
		return nil, err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	var d profileDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("profile_repository_fs: decode %s: %w", uid, err)
	}
	d.UID = snap.Ref.ID
	p := d.toModel()
	return &p, nil
}

func (r *FirestoreProfileRepository) Set(ctx context.Context, profile *models.UserProfile) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "set", "users")(&err)
	ref, err := r.doc(profile.UID)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, profileDocFromModel(*profile)); err != nil {
		return fmt.Errorf("profile_repository_fs: set %s failed: %w", profile.UID, err)
	}
	return nil
}

func (r *FirestoreProfileRepository) Merge(ctx context.Context, uid string, update models.ProfileUpdate) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "merge", "users")(&err)
	ref, err := r.doc(uid)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, profileMergeFields(uid, update), firestore.MergeAll); err != nil {
		return fmt.Errorf("profile_repository_fs: merge %s failed: %w", uid, err)
	}
	return nil
}

// FirestoreCredentialRepository implements CredentialRepository on credentials/{uid}.
type FirestoreCredentialRepository struct {
	Client  *firestore.Client
	metrics *metrics.AppMetrics
}

func NewFirestoreCredentialRepository(client *firestore.Client, m *metrics.AppMetrics) *FirestoreCredentialRepository {
	return &FirestoreCredentialRepository{Client: client, metrics: m}
}

func (r *FirestoreCredentialRepository) col() *firestore.CollectionRef {
	return r.Client.Collection("credentials")
}

func (r *FirestoreCredentialRepository) ready() error {
	if r == nil || r.Client == nil {
		return errors.New("credential_repository_fs: firestore client is nil")
	}
	return nil
}

// Create checks the email and writes the record in one transaction.
func (r *FirestoreCredentialRepository) Create(ctx context.Context, cred *models.Credential) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "create", "credentials")(&err)
	if err := r.ready(); err != nil {
		return err
	}

	cred.Email = normalizeEmail(cred.Email)
	if cred.UID == "" {
		cred.UID = uuid.New().String()
	}
	ref := r.col().Doc(cred.UID)
	doc := credentialDoc{
		Email:           cred.Email,
		DisplayName:     cred.DisplayName,
		PasswordHash:    cred.PasswordHash,
		Admin:           cred.Admin,
		TokenGeneration: cred.TokenGeneration,
	}

	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(r.col().Where("email", "==", cred.Email).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrConflict
		}
		return tx.Create(ref, doc)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || status.Code(err) == codes.AlreadyExists {
			return ErrConflict
		}
		return fmt.Errorf("credential_repository_fs: create failed: %w", err)
	}
	return nil
}

func (r *FirestoreCredentialRepository) GetByEmail(ctx context.Context, email string) (_ *models.Credential, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "get_by_email", "credentials")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}

	snaps, err := r.col().Where("email", "==", normalizeEmail(email)).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("credential_repository_fs: lookup failed: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	c, err := credentialFromSnapshot(snaps[0])
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByUID returns (nil, nil) if not found (nil policy).
func (r *FirestoreCredentialRepository) GetByUID(ctx context.Context, uid string) (_ *models.Credential, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "get", "credentials")(&err)
	if err := r.ready(); err != nil {
		return nil, err
	}

	snap, err := r.col().Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	c, err := credentialFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *FirestoreCredentialRepository) SetAdmin(ctx context.Context, uid string, admin bool) (err error) {
	defer observe(ctx, r.metrics, backendFirestore, "set_admin", "credentials")(&err)
	if err := r.ready(); err != nil {
		return err
	}

	_, err = r.col().Doc(uid).Update(ctx, []firestore.Update{{Path: "admin", Value: admin}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("credential_repository_fs: set admin %s failed: %w", uid, err)
	}
	return nil
}

func (r *FirestoreCredentialRepository) BumpGeneration(ctx context.Context, uid string) (_ int, err error) {
	defer observe(ctx, r.metrics, backendFirestore, "bump_generation", "credentials")(&err)
	if err := r.ready(); err != nil {
		return 0, err
	}

	ref := r.col().Doc(uid)
	var generation int
	err = r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		c, err := credentialFromSnapshot(snap)
		if err != nil {
			return err
		}
		generation = c.TokenGeneration + 1
		return tx.Update(ref, []firestore.Update{{Path: "tokenGeneration", Value: generation}})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("credential_repository_fs: revoke %s failed: %w", uid, err)
	}
	return generation, nil
}
