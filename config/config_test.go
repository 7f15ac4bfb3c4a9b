package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().EventLogCapacity, cfg.EventLogCapacity)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ecosystem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eventLogCapacity: 500\nlogLevel: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.EventLogCapacity)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ecosystem.toml")
	require.NoError(t, os.WriteFile(path, []byte("event_log_capacity = 250\nlog_level = \"warn\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.EventLogCapacity)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMalformedYAMLIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ecosystem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eventLogCapacity: [this is not valid\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	t.Setenv("ATOMCTL_EVENTLOG_CAPACITY", "42")
	t.Setenv("ATOMCTL_DEFAULT_TTL", "5s")

	path := filepath.Join(t.TempDir(), "ecosystem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eventLogCapacity: 500\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.EventLogCapacity)
	assert.Equal(t, 5*time.Second, cfg.DefaultTTL)
}
