// Package arbitrage implements the arbitrage bounded context: scanning,
// simulated execution, insights and the tick scheduler that drives them.
package arbitrage

import (
	"context"
	"os"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/arbsim/business/arbitrage/di"
	"github.com/fd1az/arbsim/business/arbitrage/infra"
	marketDI "github.com/fd1az/arbsim/business/market/di"
	"github.com/fd1az/arbsim/internal/circuitbreaker"
	"github.com/fd1az/arbsim/internal/config"
	"github.com/fd1az/arbsim/internal/di"
	"github.com/fd1az/arbsim/internal/logger"
	"github.com/fd1az/arbsim/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	cfg := c.Get("config").(*config.Config)

	// Register Scanner - private dependency
	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		scanner, err := app.NewScanner(app.ScannerConfig{
			MinMarginBps: cfg.Arbitrage.MinMarginBps,
		}, marketDI.GetRandomSource(sr))
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return scanner
	})

	// Register Executor - private dependency
	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		log := sr.Get("logger").(logger.LoggerInterface)

		executor, err := app.NewExecutor(
			cfg.Arbitrage.TradeLedgerCap,
			marketDI.GetCatalog(sr),
			marketDI.GetRandomSource(sr),
			log,
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return executor
	})

	// Register InsightGenerator - private dependency
	di.RegisterToken(c, arbitrageDI.InsightGenerator, func(sr di.ServiceRegistry) *app.InsightGenerator {
		log := sr.Get("logger").(logger.LoggerInterface)

		insightCfg := app.DefaultInsightConfig()
		insightCfg.Interval = cfg.Arbitrage.InsightInterval
		insightCfg.Probability = cfg.Arbitrage.InsightProbability
		insightCfg.LedgerCap = cfg.Arbitrage.InsightLedgerCap

		gen, err := app.NewInsightGenerator(
			insightCfg,
			marketDI.GetCatalog(sr),
			marketDI.GetQuoteReader(sr),
			arbitrageDI.GetExecutor(sr),
			marketDI.GetRandomSource(sr),
			log,
		)
		if err != nil {
			panic("failed to create insight generator: " + err.Error())
		}
		return gen
	})

	// Register Engine (public - exposed to the API and main)
	di.RegisterToken(c, arbitrageDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		log := sr.Get("logger").(logger.LoggerInterface)

		engine, err := app.NewEngine(
			app.EngineConfig{
				TickInterval: cfg.Arbitrage.TickInterval,
				Breaker:      circuitbreaker.DefaultConfig("arbitrage-tick"),
			},
			marketDI.GetMarketService(sr),
			di.GetToken(sr, arbitrageDI.Scanner),
			arbitrageDI.GetExecutor(sr),
			di.GetToken(sr, arbitrageDI.InsightGenerator),
			log,
		)
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return engine
	})

	switch cfg.Arbitrage.Reporter {
	case "console":
		di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
			return infra.NewConsoleReporter(os.Stdout, marketDI.GetCatalog(sr))
		})
	case "log":
		di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
			log := sr.Get("logger").(logger.LoggerInterface)
			return infra.NewLogReporter(log, marketDI.GetCatalog(sr))
		})
	}

	if cfg.Arbitrage.AutoExecute {
		di.RegisterToken(c, arbitrageDI.AutoTrader, func(sr di.ServiceRegistry) *app.AutoTrader {
			log := sr.Get("logger").(logger.LoggerInterface)
			engine := arbitrageDI.GetEngine(sr)
			return app.NewAutoTrader(engine, engine, cfg.Arbitrage.AutoExecuteMinConfidence, log)
		})
	}

	return nil
}

// Startup starts the tick scheduler and its optional consumers.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	services := mono.Services()

	engine := arbitrageDI.GetEngine(services)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	mono.OnClose(func() error {
		engine.Close()
		return nil
	})

	if services.Has(arbitrageDI.Reporter.Name()) {
		reporter := arbitrageDI.GetReporter(services)
		go func() {
			if err := app.RunReporter(ctx, engine, reporter, cfg.Arbitrage.ReportEvery); err != nil {
				log.Error(ctx, "reporter stopped", "error", err)
			}
		}()
	}

	if services.Has(arbitrageDI.AutoTrader.Name()) {
		trader := di.GetToken(services, arbitrageDI.AutoTrader)
		go trader.Run(ctx)
	}

	log.Info(ctx, "arbitrage module started",
		"tick_interval", cfg.Arbitrage.TickInterval,
		"min_margin_bps", cfg.Arbitrage.MinMarginBpsDecimal(),
		"reporter", cfg.Arbitrage.Reporter,
		"auto_execute", cfg.Arbitrage.AutoExecute,
	)
	return nil
}
