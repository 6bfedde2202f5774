package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopwave/internal/cart"
	"shopwave/internal/identity"
	"shopwave/internal/repositories"
	"shopwave/internal/services"
)

func TestProfileService_GetCreatesLazily(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockProfileRepository(nil)
	service := services.NewProfileService(repo)
	user := &identity.User{UID: "u-1", Email: "u1@example.com", DisplayName: "U One", PhotoURL: "https://img.example.com/u1.png"}

	stored, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Nil(t, stored)

	profile, err := service.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", profile.Email)
	assert.Equal(t, "U One", profile.DisplayName)

	stored, err = repo.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, profile, stored)
}

func TestProfileService_UpdateMerges(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockProfileRepository(nil)
	service := services.NewProfileService(repo)
	user := &identity.User{UID: "u-1", Email: "u1@example.com", DisplayName: "U One"}
	_, err := service.GetProfile(ctx, user)
	require.NoError(t, err)

	city := "Springfield"
	inbox := cart.NewInbox()
	profile, err := service.UpdateProfile(ctx, user, services.ProfileForm{City: &city}, inbox)
	require.NoError(t, err)

	assert.Equal(t, "Springfield", profile.City)
	assert.Equal(t, "U One", profile.DisplayName, "absent fields are kept")
	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Profile Updated", notes[0].Title)

	bad := "not a url"
	_, err = service.UpdateProfile(ctx, user, services.ProfileForm{PhotoURL: &bad}, inbox)
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)
}
