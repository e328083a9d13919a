package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileConfig_MissingFileIsZeroValue(t *testing.T) {
	cfg, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.UserDefaults.DefaultModel)
	assert.Empty(t, cfg.Credentials)
}

func TestLoadFileConfig_ParsesUserDefaultsAndCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
user_defaults:
  default_model: claude-opus-4-5
  allowed_tools: [Read, Edit]
global_auth:
  api_key: sk-global
credentials:
  - platform_id: acme
    auth_token: tok-acme
    auth_env_var: ANTHROPIC_AUTH_TOKEN
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)

	ud := cfg.userDefaults()
	assert.Equal(t, "claude-opus-4-5", ud.DefaultModel)
	assert.Equal(t, []string{"Read", "Edit"}, ud.AllowedTools)

	ga := cfg.globalAuth()
	assert.Equal(t, "sk-global", ga.APIKey)

	creds := cfg.credentials()
	require.Len(t, creds, 1)
	assert.Equal(t, "acme", creds[0].PlatformID)
	assert.Equal(t, "tok-acme", creds[0].AuthToken)
	assert.Equal(t, "ANTHROPIC_AUTH_TOKEN", creds[0].AuthEnvVar)
}

func TestDefaultConfigPath_HonorsEnvOverride(t *testing.T) {
	t.Setenv("SESSIONCORE_CONFIG_FILE", "/tmp/custom-config.yaml")
	assert.Equal(t, "/tmp/custom-config.yaml", defaultConfigPath())
}
