// Package commands implements the leanspec CLI's cobra command tree.
// Grounded on jra3-linear-fuse/cmd/linear-fuse/commands' root-command
// wiring (persistent flags + shared bootstrap helper) and the teacher's
// cmd/specmcp/main.go for structured stderr logging and the version flag
// shape.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leanspec/leanspec/internal/config"
	"github.com/leanspec/leanspec/internal/session"
	"github.com/leanspec/leanspec/internal/specstore"
	"github.com/leanspec/leanspec/internal/tools/leanspec"
)

// Version is set by main from an ldflags-injected build value.
var Version = "dev"

var (
	cfgFile     string
	projectPath string
)

var rootCmd = &cobra.Command{
	Use:           "leanspec",
	Short:         "Create, validate, and relate local-first specs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./.lean-spec/config.json, then env, then built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", ".", "project root (the directory containing specs/)")
	rootCmd.Version = Version
}

// exitCode matches SPEC_FULL.md §6's CLI contract: 0 success, 1 generic
// error, 2 validation failure when the command is used as a gate.
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
)

func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// bootstrap loads configuration and logging for the current invocation.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, newLogger(cfg), nil
}

// specEngine bundles the pieces a spec-mutating command needs, bootstrapped
// from the current --project and --config flags.
func specEngine() (*leanspec.Engine, *config.Config, *slog.Logger, error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, nil, nil, err
	}

	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, nil, nil, err
	}
	loader := specstore.NewLoader(filepath.Join(root, cfg.SpecsDir), logger)
	writer := specstore.NewWriter(loader)

	sessions, err := sessionManager(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return leanspec.NewEngine(loader, writer, sessions), cfg, logger, nil
}

// sessionManager opens the shared session store + runner registry and
// wraps them in a Manager. The session DB lives under global state
// (<home>/.lean-spec/leanspec.db` by default), not under the project root,
// since one daemon supervises sessions across every registered project.
func sessionManager(cfg *config.Config, logger *slog.Logger) (*session.Manager, error) {
	dbPath := cfg.Session.DBPath
	if dbPath == "" {
		dbPath = session.DefaultDBPath()
	}
	store, err := session.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	registry, err := session.Load(projectPath)
	if err != nil {
		return nil, fmt.Errorf("loading runner registry: %w", err)
	}
	return session.NewManager(store, registry, logger), nil
}
