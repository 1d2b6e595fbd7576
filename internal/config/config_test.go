package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PERSONA_DIR", "PERSONA_OVERRIDE_DIR", "GEMINI_MODEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "persona", cfg.PersonaDir)
	assert.Equal(t, "data/persona_overrides", cfg.OverrideDir)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PERSONA_DIR", "/srv/personas")
	t.Setenv("PERSONA_DEFAULT_ID", "aria")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PERSONA_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/personas", cfg.PersonaDir)
	assert.Equal(t, "aria", cfg.DefaultID)
	assert.Equal(t, "key", cfg.GeminiAPIKey)

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestLogger_InvalidLevel(t *testing.T) {
	_, err := Config{LogLevel: "loud"}.Logger()
	assert.Error(t, err)
}
