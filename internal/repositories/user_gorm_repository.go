package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopwave/internal/metrics"
	"shopwave/internal/models"
)

// GORMProfileRepository is a GORM implementation of ProfileRepository.
type GORMProfileRepository struct {
	db      *gorm.DB
	metrics *metrics.AppMetrics
}

// NewGORMProfileRepository creates a new instance of GORMProfileRepository.
func NewGORMProfileRepository(db *gorm.DB, m *metrics.AppMetrics) *GORMProfileRepository {
	return &GORMProfileRepository{db: db, metrics: m}
}

// Get retrieves a profile by uid from the database.
func (r *GORMProfileRepository) Get(ctx context.Context, uid string) (_ *models.UserProfile, err error) {
	defer observe(ctx, r.metrics, backendGORM, "get", "users")(&err)

	var record profileRecord
	if err := r.db.WithContext(ctx).First(&record, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", uid, err)
	}
	profile := record.toModel()
	return &profile, nil
}

// Set writes the whole profile.
func (r *GORMProfileRepository) Set(ctx context.Context, profile *models.UserProfile) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "set", "users")(&err)

	record := profileRecordFromModel(*profile)
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		UpdateAll: true,
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to set profile %s: %w", profile.UID, err)
	}
	return nil
}

// Merge writes the present fields, creating the row first when it is missing.
func (r *GORMProfileRepository) Merge(ctx context.Context, uid string, update models.ProfileUpdate) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "merge", "users")(&err)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record profileRecord
		if err := tx.FirstOrCreate(&record, profileRecord{UID: uid}).Error; err != nil {
			return err
		}
		fields := profileUpdateColumns(update)
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&record).Updates(fields).Error
	})
	if err != nil {
		return fmt.Errorf("failed to merge profile %s: %w", uid, err)
	}
	return nil
}

// profileUpdateColumns maps present fields to columns. A map keeps empty strings,
// which a struct update would skip.
func profileUpdateColumns(u models.ProfileUpdate) map[string]interface{} {
	fields := map[string]interface{}{}
	add := func(column string, v *string) {
		if v != nil {
			fields[column] = *v
		}
	}
	add("email", u.Email)
	add("display_name", u.DisplayName)
	add("photo_url", u.PhotoURL)
	add("address", u.Address)
	add("city", u.City)
	add("postal_code", u.PostalCode)
	add("country", u.Country)
	return fields
}

// GORMCredentialRepository is a GORM implementation of CredentialRepository.
type GORMCredentialRepository struct {
	db      *gorm.DB
	metrics *metrics.AppMetrics
}

// NewGORMCredentialRepository creates a new instance of GORMCredentialRepository.
func NewGORMCredentialRepository(db *gorm.DB, m *metrics.AppMetrics) *GORMCredentialRepository {
	return &GORMCredentialRepository{db: db, metrics: m}
}

// Create creates a new credential in the database.
func (r *GORMCredentialRepository) Create(ctx context.Context, cred *models.Credential) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "create", "credentials")(&err)

	cred.Email = normalizeEmail(cred.Email)
	if cred.UID == "" {
		cred.UID = uuid.New().String()
	}
	record := credentialRecordFromModel(*cred)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&credentialRecord{}).Where("email = ?", cred.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	*cred = record.toModel()
	return nil
}

// GetByEmail retrieves a credential by email from the database.
func (r *GORMCredentialRepository) GetByEmail(ctx context.Context, email string) (_ *models.Credential, err error) {
	defer observe(ctx, r.metrics, backendGORM, "get_by_email", "credentials")(&err)
	return r.first(ctx, "email = ?", normalizeEmail(email))
}

// GetByUID retrieves a credential by uid from the database.
func (r *GORMCredentialRepository) GetByUID(ctx context.Context, uid string) (_ *models.Credential, err error) {
	defer observe(ctx, r.metrics, backendGORM, "get", "credentials")(&err)
	return r.first(ctx, "uid = ?", uid)
}

func (r *GORMCredentialRepository) first(ctx context.Context, query string, arg string) (*models.Credential, error) {
	var record credentialRecord
	if err := r.db.WithContext(ctx).First(&record, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	cred := record.toModel()
	return &cred, nil
}

// SetAdmin stores the admin claim of uid.
func (r *GORMCredentialRepository) SetAdmin(ctx context.Context, uid string, admin bool) (err error) {
	defer observe(ctx, r.metrics, backendGORM, "set_admin", "credentials")(&err)

	res := r.db.WithContext(ctx).Model(&credentialRecord{}).Where("uid = ?", uid).Update("admin", admin)
	if res.Error != nil {
		return fmt.Errorf("failed to set admin claim of %s: %w", uid, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BumpGeneration increments the token generation of uid.
func (r *GORMCredentialRepository) BumpGeneration(ctx context.Context, uid string) (_ int, err error) {
	defer observe(ctx, r.metrics, backendGORM, "bump_generation", "credentials")(&err)

	var generation int
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&credentialRecord{}).Where("uid = ?", uid).
			Update("token_generation", gorm.Expr("token_generation + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var record credentialRecord
		if err := tx.First(&record, "uid = ?", uid).Error; err != nil {
			return err
		}
		generation = record.TokenGeneration
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to revoke tokens of %s: %w", uid, err)
	}
	return generation, nil
}
