package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaArgs(t *testing.T) {
	assert.Equal(t, map[string]any{}, personaArgs(nil))
	assert.Equal(t, map[string]any{"persona_id": "aria"}, personaArgs([]string{"aria"}))
}

func TestOverrideFlagArgs_OnlyChangedFlags(t *testing.T) {
	flags := overrideSetCmd.Flags()
	require.NoError(t, flags.Parse([]string{"--preferred-language", "pt-BR", "--verbosity", ""}))

	assert.Equal(t, map[string]any{
		"preferred_language": "pt-BR",
		"verbosity":          "",
	}, overrideFlagArgs(flags))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"list"},
		{"prompt"},
		{"override", "get"},
		{"override", "set"},
		{"override", "delete"},
		{"preview"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, "path %v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
