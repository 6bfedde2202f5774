package services

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	"shopwave/internal/cart"
	"shopwave/internal/identity"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
)

// ProfileForm is the editable part of a profile. Absent fields are left alone.
type ProfileForm struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	PhotoURL    *string `json:"photoURL" validate:"omitempty,url"`
	Address     *string `json:"address" validate:"omitempty,max=200"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	PostalCode  *string `json:"postalCode" validate:"omitempty,max=20"`
	Country     *string `json:"country" validate:"omitempty,max=100"`
}

// ProfileService reads and updates user profiles.
type ProfileService struct {
	repo     repositories.ProfileRepository
	validate *validator.Validate
}

func NewProfileService(repo repositories.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo, validate: NewValidator()}
}

// GetProfile returns the profile of user, creating it from the identity fields
// on first view.
func (s *ProfileService) GetProfile(ctx context.Context, user *identity.User) (*models.UserProfile, error) {
	profile, err := s.repo.Get(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", user.UID, err)
	}
	if profile != nil {
		return profile, nil
	}

	profile = &models.UserProfile{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
	}
	if err := s.repo.Set(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile %s: %w", user.UID, err)
	}
	return profile, nil
}

// UpdateProfile merges form into the stored profile and returns the result.
func (s *ProfileService) UpdateProfile(ctx context.Context, user *identity.User, form ProfileForm, n cart.Notifier) (*models.UserProfile, error) {
	if err := validateStruct(s.validate, form); err != nil {
		return nil, err
	}
	update := models.ProfileUpdate{
		DisplayName: form.DisplayName,
		PhotoURL:    form.PhotoURL,
		Address:     form.Address,
		City:        form.City,
		PostalCode:  form.PostalCode,
		Country:     form.Country,
	}
	// the email is kept in step with the identity on every save
	if user.Email != "" {
		update.Email = &user.Email
	}

	if err := s.repo.Merge(ctx, user.UID, update); err != nil {
		log.Printf("Error saving profile %s: %v", user.UID, err)
		n.Notify(cart.Failure("Error", "Could not save profile."))
		return nil, fmt.Errorf("failed to save profile %s: %w", user.UID, err)
	}
	n.Notify(cart.Info("Profile Updated", "Your profile has been saved."))

	profile, err := s.repo.Get(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile %s: %w", user.UID, err)
	}
	return profile, nil
}
