package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-invoice-reader/internal/app"
	"github.com/a3tai/mcp-invoice-reader/internal/config"
	"github.com/a3tai/mcp-invoice-reader/internal/httpapi"
	"github.com/a3tai/mcp-invoice-reader/internal/invoice"
	"github.com/a3tai/mcp-invoice-reader/internal/logging"
	"github.com/a3tai/mcp-invoice-reader/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newRegistry returns a registry carrying the process and Go collectors
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServerMode serves the upload API until a shutdown signal arrives
func runServerMode(ctx context.Context, cfg *config.Config, pipeline *invoice.Pipeline, reg *prometheus.Registry, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	handler, err := httpapi.NewHandler(pipeline, httpapi.Options{
		UploadDir:     cfg.Directory,
		MaxUploadSize: cfg.MaxFileSize,
		Gatherer:      reg,
		Logger:        logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	if err := httpapi.Serve(ctx, cfg.Address(), handler, logger); err != nil {
		return err
	}
	logger.Info("server stopped successfully")
	return nil
}

// runStdioMode serves MCP over stdio; the parent process controls our lifecycle
func runStdioMode(ctx context.Context, cfg *config.Config, pipeline *invoice.Pipeline, logger *zap.Logger) error {
	server, err := mcp.NewServer(cfg, pipeline, logger.Named("mcp"))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewLoader("mcp-invoice-reader").Load(args)
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsStdioMode())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to set up logging: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsDebug() {
		logger.Debug("starting with configuration", zap.String("config", cfg.String()))
	}

	reg := newRegistry()
	pipeline, err := app.NewPipeline(cfg, logger, reg)
	if err != nil {
		logger.Error("failed to build pipeline", zap.Error(err))
		return 1
	}

	ctx := context.Background()
	if cfg.IsServerMode() {
		err = runServerMode(ctx, cfg, pipeline, reg, logger)
	} else {
		err = runStdioMode(ctx, cfg, pipeline, logger)
	}
	if err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Invoice Reader\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
