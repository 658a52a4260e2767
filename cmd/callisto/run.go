package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/aliases"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/launcher"
	"mercator-hq/callisto/pkg/ledger"
	"mercator-hq/callisto/pkg/proxy"
	"mercator-hq/callisto/pkg/server"
	"mercator-hq/callisto/pkg/telemetry"
	"mercator-hq/callisto/pkg/telemetry/retention"
	"mercator-hq/callisto/pkg/telemetry/sink"
)

var runFlags struct {
	listenAddress  string
	logLevel       string
	dryRun         bool
	launchUpstream bool
	stripFields    []string
	forceNonStream bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Callisto sidecar",
	Long: `Start the Callisto sidecar in front of the configured upstream.

The sidecar listens on the configured address, reverse-proxies all traffic
to the upstream completions server byte-for-byte, and publishes telemetry
about each exchange to the enabled sinks.

Examples:
  # Start with default config
  callisto run

  # Start with custom config
  callisto run --config /etc/callisto/config.yaml

  # Override listen address
  callisto run --listen 0.0.0.0:8088

  # Start and supervise the upstream process itself
  callisto run --launch-upstream

  # Strip a request field before it reaches the upstream
  callisto run --strip-field metadata

  # Validate config without starting the sidecar
  callisto run --dry-run`,
	RunE: runSidecar,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the sidecar")
	runCmd.Flags().BoolVar(&runFlags.launchUpstream, "launch-upstream", false, "start and supervise the upstream process")
	runCmd.Flags().StringSliceVar(&runFlags.stripFields, "strip-field", nil, "strip a top-level JSON field from request bodies (repeatable)")
	runCmd.Flags().BoolVar(&runFlags.forceNonStream, "force-non-streaming", false, "rewrite stream:true requests to stream:false")
}

func runSidecar(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if runFlags.launchUpstream {
		cfg.Launcher.Enabled = true
	}

	logger := newLogger(&cfg.Logging)
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Model alias resolution
	store, err := buildAliasStore(cfg)
	if err != nil {
		return cli.NewConfigError("aliases.path", err.Error())
	}
	if cfg.Aliases.Path != "" && cfg.Aliases.Watch {
		watcher, err := aliases.NewWatcher(aliases.WatcherConfig{
			Path:             cfg.Aliases.Path,
			DebounceInterval: cfg.Aliases.DebounceInterval,
		}, store, logger.With("component", "aliases.watcher"))
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create models file watcher: %w", err))
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("models file watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Printf("✓ Models file watched (%d aliases)\n", store.Len())
	} else if cfg.Aliases.Path != "" {
		fmt.Printf("✓ Models file loaded (%d aliases)\n", store.Len())
	}

	// Telemetry sinks
	var sinks []telemetry.Sink
	var promSink *sink.PrometheusSink

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Sinks.Console.Enabled {
			sinks = append(sinks, sink.NewConsoleSink())
		}
		if cfg.Telemetry.Sinks.Logger.Enabled {
			sinks = append(sinks, sink.NewLoggerSink(logger))
		}

		if cfg.Telemetry.Sinks.SQLite.Enabled {
			sqliteSink, err := sink.NewSQLiteSink(&sink.SQLiteConfig{
				Path:        cfg.Telemetry.Sinks.SQLite.Path,
				BufferSize:  cfg.Telemetry.Sinks.SQLite.BufferSize,
				BusyTimeout: cfg.Telemetry.Sinks.SQLite.BusyTimeout,
			})
			if err != nil {
				return cli.NewCommandError("run", fmt.Errorf("failed to open event store: %w", err))
			}
			defer sqliteSink.Close()
			sinks = append(sinks, sqliteSink)

			// Scheduled pruning applies to the persistent sink only.
			if cfg.Retention.Enabled {
				pruner := retention.NewPruner(sqliteSink, &retention.Config{
					RetentionDays: cfg.Retention.RetentionDays,
					MaxRecords:    cfg.Retention.MaxRecords,
					Schedule:      cfg.Retention.Schedule,
				})
				if err := pruner.Start(ctx); err != nil {
					slog.Warn("failed to start retention scheduler", "error", err)
				} else {
					defer pruner.Stop()
					if next := pruner.NextPruning(); next != nil {
						slog.Debug("retention scheduler started", "next_pruning", next)
					}
				}
			}
		}

		if cfg.Telemetry.Sinks.Prometheus.Enabled {
			promSink = sink.NewPrometheusSink(&cfg.Metrics, nil)
			sinks = append(sinks, promSink)
		}

		if cfg.Telemetry.Sinks.Ledger.Enabled {
			ledgerStore, err := ledger.NewStore(ledger.Config{
				Path:        cfg.Telemetry.Sinks.Ledger.Path,
				BusyTimeout: cfg.Telemetry.Sinks.Ledger.BusyTimeout,
			})
			if err != nil {
				return cli.NewCommandError("run", fmt.Errorf("failed to open usage ledger: %w", err))
			}
			defer ledgerStore.Close()
			sinks = append(sinks, ledger.NewSink(ledgerStore))
		}

		fmt.Printf("✓ Telemetry pipeline initialized (%d sinks)\n", len(sinks))
	} else {
		fmt.Println("✓ Telemetry disabled, passthrough only")
	}

	// Transport chain: upstream round tripper, telemetry, then request
	// filters outermost so rewrites happen before observation.
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Telemetry.Enabled {
		var toggle proxy.Toggle
		if cfg.Telemetry.ToggleEnv != "" {
			toggle = proxy.EnvToggle{Key: cfg.Telemetry.ToggleEnv}
		}
		transport = proxy.NewTransport(transport, proxy.TelemetryConfig{
			Toggle:   toggle,
			Resolver: store,
			Sinks:    sinks,
			Logger:   logger.With("component", "proxy.transport"),
		})
	}
	for _, field := range runFlags.stripFields {
		transport = proxy.NewStripFieldFilter(transport, field)
	}
	if runFlags.forceNonStream {
		transport = proxy.NewForceNonStreamingFilter(transport)
	}

	// Optional upstream supervision
	var upstreamDone <-chan struct{}
	if cfg.Launcher.Enabled {
		l, err := newLauncher(cfg, logger)
		if err != nil {
			return cli.NewConfigError("launcher.command", err.Error())
		}
		if err := l.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer l.Stop()

		if err := l.WaitReady(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("upstream did not become ready: %w", err))
		}
		upstreamDone = l.Done()
		fmt.Printf("✓ Upstream process ready (%s)\n", cfg.Launcher.Command)
	}

	// HTTP server
	opts := server.Options{
		Transport: transport,
		Logger:    logger.With("component", "server"),
	}
	if cfg.Metrics.Enabled && promSink != nil {
		opts.Metrics = promSink.Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}

	srv, err := server.NewServer(&cfg.Server, &cfg.Upstream, opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	if err := waitForServerReady(cfg.Server.ListenAddress, 5*time.Second); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("server failed to start: %w", err))
	}

	fmt.Println()
	fmt.Printf("✓ Sidecar listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Proxying to %s\n", cfg.Upstream.BaseURL)
	if opts.Metrics != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal, server error, or upstream exit
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		return nil

	case <-upstreamDone:
		slog.Error("upstream process exited, shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
		return cli.NewCommandError("run", fmt.Errorf("upstream process exited unexpectedly"))

	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Sidecar stopped")
		return nil
	}
}

// loadConfig loads the config file; a missing default file falls back
// to built-in defaults so `callisto run` works out of the box.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigFile && errors.Is(err, os.ErrNotExist) {
		return config.DefaultConfig(), nil
	}
	return nil, err
}

// newLogger builds the process logger from the logging config. The
// --verbose flag forces debug level regardless of config.
func newLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// buildAliasStore loads the models file when configured; otherwise
// every alias resolves to itself.
func buildAliasStore(cfg *config.Config) (*aliases.Store, error) {
	if cfg.Aliases.Path == "" {
		return aliases.NewStore(nil), nil
	}

	lookup, err := aliases.LoadFile(cfg.Aliases.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load models file: %w", err)
	}
	return aliases.NewStore(lookup), nil
}

// newLauncher builds the upstream supervisor, deriving the health URL
// from the upstream config when not set explicitly.
func newLauncher(cfg *config.Config, logger *slog.Logger) (*launcher.Launcher, error) {
	healthURL := cfg.Launcher.HealthURL
	if healthURL == "" {
		healthURL = strings.TrimSuffix(cfg.Upstream.BaseURL, "/") + cfg.Upstream.HealthPath
	}

	return launcher.New(launcher.Config{
		Command:        cfg.Launcher.Command,
		Args:           cfg.Launcher.Args,
		HealthURL:      healthURL,
		HealthInterval: cfg.Launcher.HealthInterval,
		StartupTimeout: cfg.Launcher.StartupTimeout,
		StopGrace:      cfg.Launcher.StopGrace,
	}, logger.With("component", "launcher"))
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Callisto %s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	slog.Debug("upstream configured", "base_url", cfg.Upstream.BaseURL)
	if cfg.Telemetry.Enabled {
		slog.Debug("telemetry enabled", "toggle_env", cfg.Telemetry.ToggleEnv)
	}
	if cfg.Launcher.Enabled {
		slog.Debug("launcher enabled", "command", cfg.Launcher.Command)
	}
}

// waitForServerReady polls the sidecar's own liveness endpoint until it
// answers or the timeout elapses.
func waitForServerReady(address string, timeout time.Duration) error {
	url := fmt.Sprintf("http://%s/healthz", address)
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %s", timeout)
}
