package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "specs", cfg.SpecsDir)
	assert.Equal(t, "stdio", cfg.Transport.Mode)
	assert.Equal(t, "guided", cfg.Session.DefaultMode)
}

func TestLoad_JSONFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leanspec.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"specs_dir":"docs/specs","transport":{"mode":"http"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "docs/specs", cfg.SpecsDir)
	assert.Equal(t, "http", cfg.Transport.Mode)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leanspec.config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("specs_dir: yaml-specs\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-specs", cfg.SpecsDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leanspec.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"specs_dir":"docs/specs"}`), 0o644))
	t.Setenv("LEANSPEC_SPECS_DIR", "env-specs")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-specs", cfg.SpecsDir)
}

func TestValidate_RejectsUnknownTransportMode(t *testing.T) {
	cfg := &Config{Transport: TransportConfig{Mode: "carrier-pigeon"}, Session: SessionConfig{DefaultMode: "guided"}, Log: LogConfig{Format: "text"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownSessionMode(t *testing.T) {
	cfg := &Config{Transport: TransportConfig{Mode: "stdio"}, Session: SessionConfig{DefaultMode: "bogus"}, Log: LogConfig{Format: "text"}}
	assert.Error(t, cfg.Validate())
}
