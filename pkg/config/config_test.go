package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"shopwave/pkg/config"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	cfg := config.FromViper(v)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, config.StoreMemory, cfg.StoreDriver)
	assert.Equal(t, config.IdentityLocal, cfg.IdentityProvider)
	assert.Equal(t, "admin", cfg.AdminClaim)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 45*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Empty(t, cfg.JWTSecret)
	assert.True(t, cfg.SeedProducts)
	assert.False(t, cfg.NeedsFirebase())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("APP_PORT", "9090")
	v.Set("STORE_DRIVER", " Firestore ")
	v.Set("SESSION_TTL", "5m")
	v.Set("IDENTITY_PROVIDER", "firebase")

	cfg := config.FromViper(v)

	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, config.StoreFirestore, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.NeedsFirebase())
}
