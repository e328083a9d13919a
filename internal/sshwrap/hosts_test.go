package sshwrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHostConfig_MissingFileReturnsEmpty(t *testing.T) {
	cfg, err := LoadHostConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Hosts)
}

func TestLoadHostConfig_ParsesHostsAndDefaultsPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	yamlBody := "hosts:\n" +
		"  - name: gpu-box\n" +
		"    host: gpu.internal\n" +
		"    user: dev\n" +
		"  - name: pinned-port\n" +
		"    host: other.internal\n" +
		"    user: dev\n" +
		"    port: 2222\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := LoadHostConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, 22, cfg.Hosts[0].Port)
	assert.Equal(t, 2222, cfg.Hosts[1].Port)
}

func TestHostConfig_Resolve(t *testing.T) {
	cfg := &HostConfig{Hosts: []RemoteHost{{Name: "gpu-box", Host: "gpu.internal"}}}

	host, err := cfg.Resolve("gpu-box")
	require.NoError(t, err)
	assert.Equal(t, "gpu.internal", host.Host)

	_, err = cfg.Resolve("missing")
	assert.Error(t, err)
}

func TestDefaultConfigPath_HonorsEnvOverride(t *testing.T) {
	t.Setenv("SESSIONCORE_CONFIG", "/tmp/custom-hosts.yaml")
	assert.Equal(t, "/tmp/custom-hosts.yaml", DefaultConfigPath())
}
