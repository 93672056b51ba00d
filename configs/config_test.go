package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "https://open.tiktokapis.com", cfg.PlatformAPIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 30*time.Minute, cfg.PublishReconcileIn)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.Equal(t, 5*time.Minute, cfg.SignedURLBuffer)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PLATFORM_API_BASE_URL", "https://sandbox.tiktokapis.com")
	t.Setenv("PUBLISH_TIMEOUT_SECONDS", "60")
	t.Setenv("SIGNED_URL_TTL_SECONDS", "7200")

	cfg := LoadConfig()

	assert.Equal(t, "https://sandbox.tiktokapis.com", cfg.PlatformAPIBaseURL)
	assert.Equal(t, time.Minute, cfg.PublishTimeout)
	assert.Equal(t, 2*time.Hour, cfg.SignedURLTTL)
}

func TestLoadConfigIgnoresBadDurations(t *testing.T) {
	t.Setenv("PUBLISH_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("SIGNED_URL_TTL_SECONDS", "-5")

	cfg := LoadConfig()

	assert.Equal(t, 30*time.Second, cfg.PublishTimeout)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
}
