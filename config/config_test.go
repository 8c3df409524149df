package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("MR_TEST_INT", "42")
	t.Setenv("MR_TEST_BAD_INT", "forty")
	t.Setenv("MR_TEST_DURATION", "90s")
	t.Setenv("MR_TEST_BOOL", "true")

	assert.Equal(t, 42, GetEnv("MR_TEST_INT", 1).(int))
	assert.Equal(t, 1, GetEnv("MR_TEST_BAD_INT", 1).(int))
	assert.Equal(t, 90*time.Second, GetEnv("MR_TEST_DURATION", time.Second).(time.Duration))
	assert.True(t, GetEnv("MR_TEST_BOOL", false).(bool))
	assert.Equal(t, "fallback", GetEnv("MR_TEST_UNSET", "fallback").(string))
}

func TestLoad_MemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DEFAULT_TIMEZONE", "UTC")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SHARE_CODE_TTL", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreBackendMemory, cfg.Server.StoreBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Sharing.CodeTTL)
	assert.Equal(t, "Feeds", cfg.Tables.Feeds)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "postgres")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "memory")
		t.Setenv("DEFAULT_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("dynamodb without region", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "dynamodb")
		t.Setenv("AWS_REGION", "")
		t.Setenv("DYNAMODB_ENDPOINT", "")
		_, err := Load()
		assert.Error(t, err)
	})
}
