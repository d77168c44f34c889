package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should load defaults when no environment is set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 0, cfg.Server.Port)
		assert.Equal(t, 60*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, 20, cfg.Backend.MaxPageFetches)
		assert.Equal(t, "info", cfg.Runtime.LogLevel)
	})

	t.Run("Should override defaults from environment variables", func(t *testing.T) {
		t.Setenv("CCOW_API_URL", "https://ccow.example.com/api")
		t.Setenv("CCOW_MCP_SERVER_PORT", "14600")
		t.Setenv("CCOW_API_TOKEN", "secret-token")
		t.Setenv("CCOW_LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://ccow.example.com/api", cfg.Backend.BaseURL)
		assert.Equal(t, 14600, cfg.Server.Port)
		assert.Equal(t, "secret-token", cfg.Backend.AuthToken.Value())
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
	})

	t.Run("Should reject an invalid log level", func(t *testing.T) {
		t.Setenv("CCOW_LOG_LEVEL", "loud")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Should parse timeout as a duration", func(t *testing.T) {
		t.Setenv("CCOW_API_TIMEOUT", "30s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	})
}

func TestSensitiveString(t *testing.T) {
	t.Run("Should mask value in String and JSON output", func(t *testing.T) {
		s := SensitiveString("token")
		assert.Equal(t, "[REDACTED]", s.String())
		out, err := s.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"[REDACTED]"`, string(out))
		assert.Equal(t, "token", s.Value())
	})
}
