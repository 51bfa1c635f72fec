// Tagmilld is the tagging daemon: it loads the rule document, serves
// tag/reload/validate/stats over HTTP, hot-reloads rules on file
// change, and optionally syncs rules from a remote tag catalog.
//
// Configuration is loaded from ~/.config/tagmill/config.yaml with
// TAGMILL_* environment overrides. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	tagmilld
//
//	# Explicit config file
//	tagmilld -config /etc/tagmill/config.yaml
//
//	# Configure via environment
//	TAGMILL_SERVER_PORT=9180 TAGMILL_RULES_PATH=/etc/tagmill/rules.yaml tagmilld
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tagmill/tagmill/internal/catalog"
	"github.com/tagmill/tagmill/internal/config"
	"github.com/tagmill/tagmill/internal/legacy"
	"github.com/tagmill/tagmill/internal/logging"
	"github.com/tagmill/tagmill/internal/people"
	"github.com/tagmill/tagmill/internal/rules"
	"github.com/tagmill/tagmill/internal/scoring"
	"github.com/tagmill/tagmill/internal/tagging"
	"github.com/tagmill/tagmill/internal/telemetry"
	"github.com/tagmill/tagmill/pkg/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/tagmill/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  tagmilld           Start the tagging daemon\n")
			fmt.Fprintf(os.Stderr, "  tagmilld version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("tagmilld\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the pipeline and blocks until the context is cancelled:
//
//  1. Loads and validates configuration
//  2. Initializes logger and telemetry
//  3. Builds the rule store and optional file watcher
//  4. Loads the people directory
//  5. Builds both taggers and the tagging facade
//  6. Starts the optional catalog syncer
//  7. Starts the HTTP server
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	wrapped, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = wrapped.Sync()
	}()
	logger := wrapped.Underlying()

	logger.Info("starting tagmilld",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Tagging.Mode),
		zap.String("rules", cfg.Rules.Path))

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()
	if degraded, msg := tel.Degraded(); degraded {
		logger.Warn("telemetry degraded", zap.String("reason", msg))
	}

	// Rule store with the local document; a load failure is not fatal
	// because the watcher or catalog sync can repair it.
	store, err := rules.NewStore(rules.FileSource{Path: cfg.Rules.Path}, logger.Named("rules"))
	if err != nil {
		logger.Warn("initial rule load failed, starting with empty set", zap.Error(err))
	}

	rules.ObserveStore(store)

	if cfg.Rules.Watch {
		watcher, err := rules.NewWatcher(cfg.Rules.Path, store, cfg.Rules.Debounce, logger.Named("watcher"))
		if err != nil {
			logger.Warn("rule file watcher unavailable", zap.Error(err))
		} else {
			go watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	directory := people.Empty
	if cfg.People.Path != "" {
		dir, err := people.LoadFile(cfg.People.Path)
		if err != nil {
			logger.Warn("people directory unavailable", zap.Error(err))
		} else {
			directory = dir
			logger.Info("people directory loaded",
				zap.String("path", cfg.People.Path),
				zap.Int("identities", len(dir.Identities())))
		}
	}

	stats := scoring.NewStats()
	scorer := scoring.New(scoring.Config{
		Store:     store,
		Directory: directory,
		MinScore:  cfg.Tagging.MinScore,
		Disabled:  cfg.Tagging.DisableScored,
		Stats:     stats,
		Logger:    logger.Named("scoring"),
	})

	metrics := tagging.NewMetrics()
	svc := tagging.NewService(tagging.Config{
		Scorer:       scorer,
		Legacy:       legacy.NewKeywordEvaluator(nil),
		Mapper:       legacy.NewMapper(nil, cfg.Tagging.FinanceAreas),
		Metrics:      metrics,
		Logger:       logger.Named("tagging"),
		CacheTTL:     cfg.Tagging.CacheTTL,
		CacheEntries: cfg.Tagging.CacheEntries,
	})

	if cfg.Catalog.Enabled {
		client, err := catalog.NewClient(catalog.ClientConfig{
			BaseURL:    cfg.Catalog.BaseURL,
			Token:      cfg.Catalog.Token.Value(),
			Timeout:    cfg.Catalog.Timeout,
			MaxRetries: cfg.Catalog.MaxRetries,
		})
		if err != nil {
			return fmt.Errorf("initializing catalog client: %w", err)
		}
		syncer, err := catalog.NewSyncer(catalog.SyncerConfig{
			Client:       client,
			Store:        store,
			SnapshotPath: cfg.Catalog.SnapshotPath,
			Interval:     cfg.Catalog.Interval,
			Logger:       logger.Named("catalog"),
			OnSwap:       svc.ClearCache,
		})
		if err != nil {
			return fmt.Errorf("initializing catalog syncer: %w", err)
		}

		if err := syncer.Sync(ctx); err != nil {
			logger.Warn("initial catalog sync failed", zap.Error(err))
		}
		go syncer.Run(ctx)
	}

	srv, err := server.NewServer(server.Options{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		ServiceName:     cfg.Telemetry.ServiceName,
		DefaultMode:     cfg.Tagging.Mode,
		Tagger:          svc,
		Store:           store,
		Stats:           stats,
		Logger:          logger.Named("server"),
	})
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	logger.Info("server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("tag_endpoint", "/v1/tag"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Start(ctx)
}
