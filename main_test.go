package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopwave/internal/models"
	"shopwave/internal/repositories"
	"shopwave/pkg/config"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	for key, value := range overrides {
		v.Set(key, value)
	}
	return config.FromViper(v)
}

func TestSeedProducts(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockProductRepository(nil)

	assert.Equal(t, 3, seedProducts(ctx, repo))
	products, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)

	found, err := repo.SearchByPrefix(ctx, "vint", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, models.ConditionUsed, found[0].Condition)

	// a catalog that already has products is left alone
	assert.Equal(t, 0, seedProducts(ctx, repo))
}

func TestOpenBackend_Memory(t *testing.T) {
	b, err := openBackend(context.Background(), testConfig(t, nil), nil)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "memory", b.store.Backend)
	assert.Nil(t, b.db)
}

func TestOpenBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, map[string]interface{}{
		"STORE_DRIVER": "sqlite",
		"SQLITE_PATH":  filepath.Join(t.TempDir(), "shopwave.db"),
	})

	b, err := openBackend(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()
	require.NotNil(t, b.db)

	assert.Equal(t, 3, seedProducts(ctx, b.store.Products))
	products, err := b.store.Products.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	_, err := openBackend(context.Background(), testConfig(t, map[string]interface{}{"STORE_DRIVER": "cassandra"}), nil)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestNewIdentity_LocalBootstrapsAdmin(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, map[string]interface{}{
		"JWT_SECRET":               "a-long-enough-test-secret",
		"BOOTSTRAP_ADMIN_EMAIL":    "admin@example.com",
		"BOOTSTRAP_ADMIN_PASSWORD": "admin-password",
	})
	b, err := openBackend(ctx, cfg, nil)
	require.NoError(t, err)
	defer b.Close()

	provider, local, err := newIdentity(ctx, cfg, b)
	require.NoError(t, err)
	require.NotNil(t, local)

	user, token, err := local.Login(ctx, "admin@example.com", "admin-password")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	verified, err := provider.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.IsAdmin)
}

func TestNewIdentity_Unknown(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{"IDENTITY_PROVIDER": "ldap"})
	b, err := openBackend(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close()

	_, _, err = newIdentity(context.Background(), cfg, b)
	assert.ErrorContains(t, err, "unknown identity provider")
}

func TestNewIdentity_LocalRejectsWeakSecret(t *testing.T) {
	ctx := context.Background()
	for _, secret := range []string{"", "   ", "change-me", "short"} {
		cfg := testConfig(t, map[string]interface{}{"JWT_SECRET": secret})
		b, err := openBackend(ctx, cfg, nil)
		require.NoError(t, err)

		provider, local, err := newIdentity(ctx, cfg, b)
		assert.Error(t, err, "secret %q", secret)
		assert.Nil(t, provider)
		assert.Nil(t, local)
		b.Close()
	}
}
