package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bazelment/sessioncore/internal/adapter"
	"github.com/bazelment/sessioncore/internal/sessioncmd"
)

// fileConfig is the on-disk shape of the account-level config file: user
// defaults, the global fallback credential, and any platform-scoped
// credential overrides. It exists only to give sessioncmd.Manager's
// UserDefaults/GlobalAuth/Credentials fields a config-file-backed source;
// the in-memory types it decodes into carry no yaml tags of their own
// since nothing else constructs them from yaml.
type fileConfig struct {
	UserDefaults userDefaultsConfig         `yaml:"user_defaults"`
	GlobalAuth   CredentialConfig           `yaml:"global_auth"`
	Credentials  []platformCredentialConfig `yaml:"credentials"`
	ClaudeBin    string                     `yaml:"claude_bin,omitempty"`
}

type userDefaultsConfig struct {
	DefaultModel   string   `yaml:"default_model,omitempty"`
	AllowedTools   []string `yaml:"allowed_tools,omitempty"`
	PermissionMode string   `yaml:"permission_mode,omitempty"`
	MaxBudgetUSD   *float64 `yaml:"max_budget_usd,omitempty"`
	FallbackModel  string   `yaml:"fallback_model,omitempty"`
}

// CredentialConfig is exported so gopkg.in/yaml.v3 can populate it as an
// inline-embedded field in platformCredentialConfig: reflection can only
// set exported fields, and an anonymous field's name is its type name.
type CredentialConfig struct {
	APIKey       string            `yaml:"api_key,omitempty"`
	AuthToken    string            `yaml:"auth_token,omitempty"`
	BaseURL      string            `yaml:"base_url,omitempty"`
	DefaultModel string            `yaml:"default_model,omitempty"`
	AuthEnvVar   string            `yaml:"auth_env_var,omitempty"`
	ExtraEnv     map[string]string `yaml:"extra_env,omitempty"`
}

type platformCredentialConfig struct {
	PlatformID       string `yaml:"platform_id"`
	CredentialConfig `yaml:",inline"`
}

// defaultConfigPath returns $SESSIONCORE_CONFIG_FILE if set, otherwise
// ~/.config/sessioncore/config.yaml — a sibling of sshwrap's own
// DefaultConfigPath for the hosts file.
func defaultConfigPath() string {
	if p := os.Getenv("SESSIONCORE_CONFIG_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/sessioncore/config.yaml"
	}
	return filepath.Join(home, ".config", "sessioncore", "config.yaml")
}

// loadFileConfig reads and parses the config file at path. A missing file
// is not an error: it resolves to a zero-value config, identical to a
// fresh install with no account configured yet.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &fileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *fileConfig) userDefaults() adapter.UserDefaults {
	return adapter.UserDefaults{
		DefaultModel:   c.UserDefaults.DefaultModel,
		AllowedTools:   c.UserDefaults.AllowedTools,
		PermissionMode: c.UserDefaults.PermissionMode,
		MaxBudgetUSD:   c.UserDefaults.MaxBudgetUSD,
		FallbackModel:  c.UserDefaults.FallbackModel,
	}
}

func (c *fileConfig) globalAuth() sessioncmd.GlobalAuth {
	return sessioncmd.GlobalAuth{
		APIKey:       c.GlobalAuth.APIKey,
		AuthToken:    c.GlobalAuth.AuthToken,
		BaseURL:      c.GlobalAuth.BaseURL,
		DefaultModel: c.GlobalAuth.DefaultModel,
		AuthEnvVar:   c.GlobalAuth.AuthEnvVar,
		ExtraEnv:     c.GlobalAuth.ExtraEnv,
	}
}

func (c *fileConfig) credentials() []sessioncmd.Credential {
	creds := make([]sessioncmd.Credential, 0, len(c.Credentials))
	for _, pc := range c.Credentials {
		creds = append(creds, sessioncmd.Credential{
			PlatformID:   pc.PlatformID,
			APIKey:       pc.APIKey,
			AuthToken:    pc.AuthToken,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.DefaultModel,
			AuthEnvVar:   pc.AuthEnvVar,
			ExtraEnv:     pc.ExtraEnv,
		})
	}
	return creds
}
