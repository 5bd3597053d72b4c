package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/pkg/config"
	"github.com/switchboard-ai/switchboard/pkg/costs"
	"github.com/switchboard-ai/switchboard/pkg/dedup"
	"github.com/switchboard-ai/switchboard/pkg/gateway"
	"github.com/switchboard-ai/switchboard/pkg/health"
	"github.com/switchboard-ai/switchboard/pkg/quota"
	"github.com/switchboard-ai/switchboard/pkg/registry"
	"github.com/switchboard-ai/switchboard/pkg/routing"
	"github.com/switchboard-ai/switchboard/pkg/server"
	"github.com/switchboard-ai/switchboard/pkg/store"
	"github.com/switchboard-ai/switchboard/pkg/telemetry"
)

var runFlags struct {
	listenAddress string
	logLevel      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The gateway serves the OpenAI-compatible API on the configured address
and hot-reloads the model catalog when the configuration file changes.

Examples:
  # Start with default config
  switchboard run

  # Start with custom config
  switchboard run --config /etc/switchboard/config.yaml

  # Override listen address
  switchboard run --listen 0.0.0.0:8080`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger := telemetry.NewLogger(cfg.Telemetry.Logging)
	slog.SetDefault(logger)

	reg, err := registry.FromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}

	healthStore := health.NewStore(cfg.Health.CooldownBase, cfg.Health.CooldownMax)
	quotaTracker := quota.NewTracker()
	latency := costs.NewLatencyView()
	metrics := telemetry.NewMetrics(nil)

	backend, err := storeBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to open usage store: %w", err)
	}
	accountant := store.NewAccountant(backend, cfg.Store.FlushInterval, logger)
	defer accountant.Close()

	maintenance, err := store.NewMaintenance(accountant, cfg.Store.ResetSchedule, 0, logger)
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	deduplicator := buildDedup(cfg, logger)

	orch := &routing.Orchestrator{
		Router: &routing.Router{
			Registry: reg,
			Health:   healthStore,
			Quota:    quotaTracker,
			Latency:  latency,
			Routing:  &cfg.Routing,
			Logger:   logger,
		},
		Health:   healthStore,
		Quota:    quotaTracker,
		Latency:  latency,
		Logger:   logger,
		Observer: metrics,
	}

	gw := gateway.New(gateway.Options{
		Config:       cfg,
		Registry:     reg,
		Orchestrator: orch,
		Dedup:        deduplicator,
		Accountant:   accountant,
		Metrics:      metrics,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Hot-reload swaps the catalog snapshot on config changes; the
	// serving stack keeps running on reload errors.
	watcher, err := config.NewWatcher(cfgFile, logger)
	if err != nil {
		logger.Warn("config watcher unavailable, hot reload disabled", "error", err)
	} else {
		defer watcher.Close()
		go func() {
			_ = watcher.Watch(ctx, func() error {
				next, err := config.LoadWithEnvOverrides(cfgFile)
				if err != nil {
					return err
				}
				return reg.Reload(next)
			})
		}()
	}

	logger.Info("starting switchboard",
		"version", Version,
		"providers", len(cfg.Providers),
		"models", len(cfg.Models),
	)
	return server.New(cfg.Server, gw.Handler(), logger).Start(ctx)
}

// storeBackend opens the configured usage persistence backend.
func storeBackend(cfg *config.Config) (store.Backend, error) {
	if cfg.Store.Backend == "sqlite" {
		return store.NewSQLiteBackend(cfg.Store.SQLitePath)
	}
	return store.NewMemoryBackend(), nil
}

// buildDedup picks the deduplication backend: Redis when configured,
// in-process otherwise, none when disabled.
func buildDedup(cfg *config.Config, logger *slog.Logger) dedup.Deduplicator {
	if cfg.Dedup.Enabled != nil && !*cfg.Dedup.Enabled {
		return dedup.Noop{}
	}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		return dedup.NewRedis(client, cfg.Dedup.TTL, cfg.Dedup.WaitTimeout, cfg.Dedup.PollInterval, logger)
	}
	return dedup.NewMemory(cfg.Dedup.WaitTimeout)
}
