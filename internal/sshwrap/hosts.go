package sshwrap

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RemoteHost is one named remote target the SSH wrapper can resolve
// against, loaded from the hosts config file.
type RemoteHost struct {
	Name             string `yaml:"name"`
	Host             string `yaml:"host"`
	User             string `yaml:"user"`
	Port             int    `yaml:"port"`
	KeyPath          string `yaml:"key_path,omitempty"`
	RemoteCWD        string `yaml:"remote_cwd,omitempty"`
	RemoteClaudePath string `yaml:"remote_claude_path,omitempty"`
	ForwardAPIKey    bool   `yaml:"forward_api_key"`
}

// HostConfig is the top-level shape of the hosts config file.
type HostConfig struct {
	Hosts []RemoteHost `yaml:"hosts"`
}

// DefaultConfigPath returns $SESSIONCORE_CONFIG if set, otherwise
// ~/.config/sessioncore/hosts.yaml.
func DefaultConfigPath() string {
	if p := os.Getenv("SESSIONCORE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/sessioncore/hosts.yaml"
	}
	return filepath.Join(home, ".config", "sessioncore", "hosts.yaml")
}

// LoadHostConfig reads and parses the hosts config file at path. A missing
// file is not an error: it resolves to a config with no hosts, the same as
// a fresh install that has never defined a remote target.
func LoadHostConfig(path string) (*HostConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &HostConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read host config %s: %w", path, err)
	}

	var cfg HostConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse host config %s: %w", path, err)
	}
	for i := range cfg.Hosts {
		if cfg.Hosts[i].Port == 0 {
			cfg.Hosts[i].Port = 22
		}
	}
	return &cfg, nil
}

// Resolve looks up a host by name. Runs with no host snapshot (legacy runs
// predating per-run snapshots) fall back to this lookup, which fails if the
// name no longer exists.
func (c *HostConfig) Resolve(name string) (*RemoteHost, error) {
	for i := range c.Hosts {
		if c.Hosts[i].Name == name {
			return &c.Hosts[i], nil
		}
	}
	return nil, fmt.Errorf("remote host %q not found", name)
}
