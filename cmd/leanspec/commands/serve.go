package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leanspec/leanspec/internal/config"
	"github.com/leanspec/leanspec/internal/httpapi"
	"github.com/leanspec/leanspec/internal/mcp"
	leanspectools "github.com/leanspec/leanspec/internal/tools/leanspec"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "stdio|http|both")
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP listen port; defaults to config's transport.port")
}

var (
	serveTransport string
	servePort      string
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the MCP and/or HTTP surfaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		registry := mcp.NewRegistry()
		registerLeanspecTools(registry, eng)

		transport := serveTransport
		if transport == "" {
			transport = cfg.Transport.Mode
		}

		switch transport {
		case "stdio":
			server := mcp.NewServer(registry, mcp.ServerInfo{Name: cfg.Server.Name, Version: Version}, logger)
			return server.Run(ctx)
		case "http":
			return serveHTTP(ctx, cfg, logger, registry)
		case "serve", "both":
			errCh := make(chan error, 1)
			go func() { errCh <- serveHTTP(ctx, cfg, logger, registry) }()
			server := mcp.NewServer(registry, mcp.ServerInfo{Name: cfg.Server.Name, Version: Version}, logger)
			if err := server.Run(ctx); err != nil {
				return err
			}
			return <-errCh
		default:
			return fmt.Errorf("unknown --transport: %s", transport)
		}
	},
}

func registerLeanspecTools(registry *mcp.Registry, eng *leanspectools.Engine) {
	registry.Register(leanspectools.NewList(eng))
	registry.Register(leanspectools.NewView(eng))
	registry.Register(leanspectools.NewCreate(eng))
	registry.Register(leanspectools.NewUpdate(eng))
	registry.Register(leanspectools.NewSearch(eng))
	registry.Register(leanspectools.NewValidate(eng))
	registry.Register(leanspectools.NewTokens(eng))
	registry.Register(leanspectools.NewBoard(eng))
	registry.Register(leanspectools.NewStats(eng))
	registry.Register(leanspectools.NewRelationships(eng))
	registry.Register(leanspectools.NewRunSubagent(eng))
}

// serveHTTP launches the REST+WebSocket+SSE surface and mounts the MCP
// Streamable HTTP transport alongside it under one listener, matching the
// teacher's single-binary transport-switch pattern (cmd/specmcp chooses
// stdio vs HTTP off one flag) generalized to run both surfaces at once.
func serveHTTP(ctx context.Context, cfg *config.Config, logger *slog.Logger, registry *mcp.Registry) error {
	root, err := filepath.Abs(projectPath)
	if err != nil {
		return err
	}

	sessions, err := sessionManager(cfg, logger)
	if err != nil {
		return err
	}

	projects, err := httpapi.NewProjectRegistry(httpapi.DefaultProjectsPath(), sessions, logger)
	if err != nil {
		return fmt.Errorf("opening project registry: %w", err)
	}
	proj, err := projects.Add(root)
	if err != nil {
		return fmt.Errorf("registering project %s: %w", root, err)
	}

	watch, err := httpapi.NewWatchdog(logger)
	if err != nil {
		return fmt.Errorf("starting filesystem watchdog: %w", err)
	}
	defer watch.Close()
	watch.AddRoot(proj.Path)

	restServer := httpapi.NewServer(projects, sessions, watch, cfg.Transport.CORSOrigins, logger)
	mcpServer := mcp.NewServer(registry, mcp.ServerInfo{Name: cfg.Server.Name, Version: Version}, logger)
	mcpHTTP := mcp.NewHTTPServer(mcpServer, cfg.Transport.CORSOrigins, logger)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHTTP.Handler())
	mux.Handle("/", restServer.Handler())

	port := servePort
	if port == "" {
		port = cfg.Transport.Port
	}
	addr := cfg.Transport.Host + ":" + port

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("http surface listening", "addr", addr, "project", proj.Path)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
