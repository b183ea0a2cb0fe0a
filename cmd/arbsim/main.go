// Package main is the entry point for the multi-venue arbitrage simulator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/arbsim/business/arbitrage"
	arbitrageDI "github.com/fd1az/arbsim/business/arbitrage/di"
	"github.com/fd1az/arbsim/business/arbitrage/infra/httpapi"
	"github.com/fd1az/arbsim/business/market"
	marketDI "github.com/fd1az/arbsim/business/market/di"
	"github.com/fd1az/arbsim/internal/apm"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/config"
	"github.com/fd1az/arbsim/internal/di"
	"github.com/fd1az/arbsim/internal/health"
	"github.com/fd1az/arbsim/internal/logger"
	"github.com/fd1az/arbsim/internal/metrics"
	"github.com/fd1az/arbsim/internal/monolith"
	"github.com/fd1az/arbsim/internal/wsconn"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	console := flag.Bool("console", false, "Print ticks, trades and insights to stdout instead of the log")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbsim %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *console); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, console bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if console {
		cfg.Arbitrage.Reporter = "console"
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting arbitrage simulator",
		"version", version,
		"environment", cfg.App.Environment,
	)

	shutdownTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer shutdownTelemetry()

	mono := monolith.New(cfg, log)
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(ctx, "error closing modules", "error", err)
		}
	}()

	// Define modules in dependency order
	modules := []monolith.Module{
		&market.Module{},    // Catalog, simulator and quote store
		&arbitrage.Module{}, // Scanner, executor, insights and the scheduler
	}

	if err := mono.RegisterModules(modules...); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			log.Error(ctx, "module registration failed", appErr.LogArgs()...)
		}
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	registerHealthChecks(healthServer, mono.Services())
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer shutdown(log, "health server", healthServer.Stop)

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	if cfg.API.Enabled {
		engine := arbitrageDI.GetEngine(mono.Services())
		api := httpapi.NewAPIHandler(engine, httpapi.Config{
			ExecuteRatePerSec: cfg.API.ExecuteRatePerSec,
			ExecuteBurst:      cfg.API.ExecuteBurst,
			WebSocket:         wsconn.DefaultConfig(),
		}, log)
		srv := api.StartServer(cfg.API.Port)
		log.Info(ctx, "api server started", "port", cfg.API.Port)
		defer shutdown(log, "api server", srv.Shutdown)
	}

	healthServer.SetReady(true)
	log.Info(ctx, "all modules started")
	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	return nil
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	traceProvider, err := apm.NewTraceProvider(log, apm.Provider(cfg.Telemetry.TraceProvider),
		apm.WithServiceName(cfg.Telemetry.ServiceName),
		apm.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
	)
	if err != nil {
		return nil, err
	}

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if provider := apm.Provider(cfg.Telemetry.TraceProvider); provider == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(cfg.Telemetry.OTLPEndpoint, nil, true)))
	}
	meterProvider, err := metrics.NewMetricProvider(metricOpts...)
	if err != nil {
		traceProvider.Stop()
		return nil, err
	}

	promServer := metrics.ServePrometheusMetrics(log, metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
	log.Info(ctx, "telemetry initialized",
		"trace_provider", cfg.Telemetry.TraceProvider,
		"prometheus_port", cfg.Telemetry.PrometheusPort,
	)

	return func() {
		shutdown(log, "metrics server", promServer.Shutdown)
		shutdown(log, "meter provider", meterProvider.Shutdown)
		if err := traceProvider.Stop(); err != nil {
			log.Error(context.Background(), "error stopping trace provider", "error", err)
		}
	}, nil
}

func registerHealthChecks(s *health.Server, services di.ServiceRegistry) {
	catalog := marketDI.GetCatalog(services)
	engine := arbitrageDI.GetEngine(services)

	s.RegisterCheck("catalog", func(context.Context) (bool, string) {
		return catalog.Size() > 0, fmt.Sprintf("%d venues, %d instruments",
			len(catalog.Venues()), len(catalog.Instruments()))
	})

	s.RegisterCheck("scheduler", func(context.Context) (bool, string) {
		if !engine.Running() {
			return false, "not running"
		}
		age := time.Since(engine.LastTickAt())
		if age > 10*engine.TickInterval() {
			return false, fmt.Sprintf("last tick %s ago", age.Round(time.Millisecond))
		}
		return true, fmt.Sprintf("breaker %s", engine.BreakerState())
	})
}

func shutdown(log logger.LoggerInterface, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error(ctx, "error stopping "+name, "error", err)
	}
}
