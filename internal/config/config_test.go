package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 25.0, cfg.DefaultRadiusKM)
	assert.Equal(t, 0.30, cfg.ValueTolerancePercent)
	assert.Equal(t, 50, cfg.MaxSwipeDeckSize)
	assert.Equal(t, 6, cfg.MaxImagesPerListing)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTAccessTokenExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.MatchTTL())
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.NotEmpty(t, cfg.JWTSecretKey, "debug mode falls back to a development secret")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MAX_SWIPE_DECK_SIZE", "20")
	t.Setenv("VALUE_TOLERANCE_PERCENT", "0.5")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 20, cfg.MaxSwipeDeckSize)
	assert.Equal(t, 0.5, cfg.ValueTolerancePercent)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.WSAllowedOrigins)
}

func TestLoad_ReleaseRequiresSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mongodb")

	_, err := Load()
	assert.Error(t, err)
}
