package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".chorus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "sqlite", cfg.Checkpoint.Backend)
	assert.Equal(t, "generated_report", cfg.Export.Dir)
	assert.Equal(t, 3, cfg.Workflow.DefaultMaxAnalysts)
	assert.Contains(t, cfg.Workflow.AffirmativeTerms, "lgtm")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".chorus.yaml")
	content := `
log:
  level: debug
  format: json
model:
  provider: scripted
checkpoint:
  backend: memory
workflow:
  default_max_analysts: 5
  max_analysts_limit: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "scripted", cfg.Model.Provider)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Equal(t, 5, cfg.Workflow.DefaultMaxAnalysts)
	// Unset sections keep defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CHORUS_LOG_LEVEL", "error")
	t.Setenv("CHORUS_SERVER_PORT", "9999")

	path := filepath.Join(t.TempDir(), ".chorus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level, "env beats file")
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad provider", "model:\n  provider: psychic\n", "model.provider"},
		{"bad backend", "checkpoint:\n  backend: carrier-pigeon\n", "checkpoint.backend"},
		{"file backend without path", "checkpoint:\n  backend: file\n  path: \"\"\n", "checkpoint.path"},
		{"zero analysts", "workflow:\n  default_max_analysts: 0\n", "default_max_analysts"},
		{"limit below default", "workflow:\n  default_max_analysts: 5\n  max_analysts_limit: 2\n", "max_analysts_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".chorus.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewLoader().WithConfigFile(path).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
