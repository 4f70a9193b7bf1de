package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"APP_ENV", "PORT", "DB_PATH", "LOG_LEVEL", "ADMIN_EMAIL", "ADMIN_PASSWORD", "SESSION_SECRET",
	"CATALOG_PATH", "BLEND_CACHE_TTL", "REDIS_ADDR", "KAFKA_BROKERS", "NOTIFY_TOPIC",
	"AI_BASE_URL", "AI_API_KEY", "AI_MODEL", "PAYMENT_SECRET", "MERCHANT_VPA", "MERCHANT_NAME",
	"PUBLIC_BASE_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./dev.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.BlendCacheTTL)
	assert.Equal(t, "storefront-notifications", cfg.NotifyTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Contains(t, cfg.Warnings, "ADMIN_EMAIL is not set")
	assert.Contains(t, cfg.Warnings, "SESSION_SECRET is not set")
}

func TestFromEnv_ReadsValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("BLEND_CACHE_TTL", "0s")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")
	t.Setenv("ADMIN_EMAIL", "admin@prakamrit.in")
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("SESSION_SECRET", "s3")
	t.Setenv("PAYMENT_SECRET", "p4")

	cfg := FromEnv()

	assert.False(t, cfg.IsDev())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Duration(0), cfg.BlendCacheTTL)
	assert.Equal(t, "https://shop.example.com", cfg.PublicBaseURL)
	assert.Empty(t, cfg.Warnings)
}

func TestFromEnv_InvalidCacheTTLFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLEND_CACHE_TTL", "soon")

	cfg := FromEnv()

	assert.Equal(t, 5*time.Minute, cfg.BlendCacheTTL)
	assert.Contains(t, cfg.Warnings, "BLEND_CACHE_TTL is invalid, using 5m0s")
}

func TestDotEnvDoesNotOverwriteExistingEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	// godotenv treats a set-but-empty variable as present.
	require.NoError(t, os.Unsetenv("DB_PATH"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\nexport DB_PATH='/tmp/shop.db'\n"), 0o600))
	require.NoError(t, godotenv.Load(path))

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/shop.db", cfg.DBPath)
}
