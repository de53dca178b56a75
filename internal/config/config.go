// Package config loads LeanSpec's layered configuration: built-in defaults,
// overlaid by an optional JSON or YAML config file, overlaid by environment
// variables. Grounded on the teacher's internal/config/config.go
// defaults-then-file-then-env structure, adapted from TOML to JSON/YAML per
// SPEC_FULL.md §10.2 (LeanSpec's own config format is JSON/YAML, not TOML).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the leanspec server/CLI.
// Precedence: environment variables > config file > defaults.
type Config struct {
	SpecsDir   string           `json:"specs_dir" yaml:"specs_dir"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Transport  TransportConfig  `json:"transport" yaml:"transport"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Frontmatter FrontmatterConfig `json:"frontmatter" yaml:"frontmatter"`
	Session    SessionConfig    `json:"session" yaml:"session"`
}

// ServerConfig holds MCP/HTTP server metadata.
type ServerConfig struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// TransportConfig holds transport-related settings.
type TransportConfig struct {
	// Mode selects the transport: "stdio" (default), "http", or "serve" (both).
	Mode string `json:"mode" yaml:"mode"`
	// Port is the HTTP listen port (default: 4173). Only used when Mode != "stdio".
	Port string `json:"port" yaml:"port"`
	// Host is the HTTP listen address (default: "127.0.0.1"). Only used when Mode != "stdio".
	Host string `json:"host" yaml:"host"`
	// CORSOrigins is a comma-separated list of allowed CORS origins (default: "*").
	CORSOrigins string `json:"cors_origins" yaml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // "json" or "text"
}

// ValidationConfig holds validator tuning knobs.
type ValidationConfig struct {
	RecommendedSections []string `json:"recommended_sections" yaml:"recommended_sections"`
	RequiredFields      []string `json:"required_fields" yaml:"required_fields"`
}

// FrontmatterConfig declares project-specific custom frontmatter fields.
type FrontmatterConfig struct {
	Custom            map[string]string `json:"custom" yaml:"custom"`
	WarnUnknownFields bool              `json:"warn_unknown_fields" yaml:"warn_unknown_fields"`
}

// SessionConfig holds AI-assistant session supervision settings.
type SessionConfig struct {
	DBPath       string `json:"db_path" yaml:"db_path"`
	DefaultMode  string `json:"default_mode" yaml:"default_mode"` // guided, autonomous, ralph
	MaxIterations int   `json:"max_iterations" yaml:"max_iterations"`
}

// Load creates a Config by reading from a JSON or YAML config file and
// environment variables. Precedence: environment variables > config file >
// defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. LEANSPEC_CONFIG environment variable
//  3. ./.lean-spec/config.json, ./.lean-spec/config.yaml or
//     ./.lean-spec/config.yml (project config, current directory)
//  4. ~/.lean-spec/config.json (global config)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		SpecsDir: "specs",
		Server: ServerConfig{
			Name:    "leanspec",
			Version: "0.1.0",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "4173",
			Host:        "127.0.0.1",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Validation: ValidationConfig{
			RecommendedSections: []string{"Overview", "Acceptance Criteria"},
		},
		Frontmatter: FrontmatterConfig{
			Custom: map[string]string{},
		},
		Session: SessionConfig{
			// DBPath left empty: sessionManager() falls back to
			// session.DefaultDBPath(), a global path under the user's home
			// directory, since one daemon supervises sessions across every
			// registered project rather than one DB per project.
			DBPath:        "",
			DefaultMode:   "guided",
			MaxIterations: 10,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the JSON/YAML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil // no config file found; rely on defaults + env
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, c); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, c); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty
// string if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit // caller wants this file; let the read report if missing
	}

	if p := os.Getenv("LEANSPEC_CONFIG"); p != "" {
		return p
	}

	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		candidate := filepath.Join(".lean-spec", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".lean-spec", "config.json")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config values.
// An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("LEANSPEC_SPECS_DIR", &c.SpecsDir)

	envOverride("LEANSPEC_TRANSPORT", &c.Transport.Mode)
	envOverride("LEANSPEC_PORT", &c.Transport.Port)
	envOverride("LEANSPEC_HOST", &c.Transport.Host)
	envOverride("LEANSPEC_CORS_ORIGINS", &c.Transport.CORSOrigins)

	envOverride("LEANSPEC_LOG_LEVEL", &c.Log.Level)
	envOverride("LEANSPEC_LOG_FORMAT", &c.Log.Format)

	envOverride("LEANSPEC_SESSION_DB", &c.Session.DBPath)
	envOverride("LEANSPEC_SESSION_MODE", &c.Session.DefaultMode)
	if v := os.Getenv("LEANSPEC_SESSION_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Session.MaxIterations = n
		}
	}
}

// Validate checks that field values are in their accepted sets.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http", "serve":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\", \"http\", or \"serve\")", c.Transport.Mode)
	}

	switch c.Session.DefaultMode {
	case "guided", "autonomous", "ralph":
	default:
		return fmt.Errorf("invalid session default_mode: %q (must be \"guided\", \"autonomous\", or \"ralph\")", c.Session.DefaultMode)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q (must be \"json\" or \"text\")", c.Log.Format)
	}

	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
