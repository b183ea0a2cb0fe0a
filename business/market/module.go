// Package market implements the market simulation bounded context: the venue
// and instrument catalog, the quote simulator and the quote store.
package market

import (
	"context"

	"github.com/fd1az/arbsim/business/market/app"
	marketDI "github.com/fd1az/arbsim/business/market/di"
	"github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/asset"
	"github.com/fd1az/arbsim/internal/config"
	"github.com/fd1az/arbsim/internal/di"
	"github.com/fd1az/arbsim/internal/logger"
	"github.com/fd1az/arbsim/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Catalog is built eagerly so a bad catalog fails startup here, not on first use.
	cfg := c.Get("config").(*config.Config)
	reg := c.Get("assetRegistry").(*asset.Registry)

	catalog, err := app.LoadCatalog(cfg.Market, reg)
	if err != nil {
		return err
	}
	di.RegisterToken(c, marketDI.Catalog, func(di.ServiceRegistry) *app.Catalog {
		return catalog
	})

	di.RegisterToken(c, marketDI.RandomSource, func(sr di.ServiceRegistry) domain.RandomSource {
		if cfg.Market.Seed != 0 {
			return domain.NewSeededSource(cfg.Market.Seed)
		}
		return domain.NewEntropySource()
	})

	di.RegisterToken(c, marketDI.Simulator, func(sr di.ServiceRegistry) *app.Simulator {
		log := sr.Get("logger").(logger.LoggerInterface)

		sim, err := app.NewSimulator(app.SimulatorConfig{
			SpreadFloor: cfg.Market.SpreadFloor,
			Reversion:   cfg.Market.Reversion,
		}, marketDI.GetRandomSource(sr), log)
		if err != nil {
			panic("failed to create quote simulator: " + err.Error())
		}
		return sim
	})

	di.RegisterToken(c, marketDI.Store, func(sr di.ServiceRegistry) *app.Store {
		return app.NewStore(cfg.Market.HistoryDepth)
	})

	di.RegisterToken(c, marketDI.QuoteReader, func(sr di.ServiceRegistry) app.QuoteReader {
		return di.GetToken(sr, marketDI.Store)
	})

	di.RegisterToken(c, marketDI.MarketService, func(sr di.ServiceRegistry) *app.MarketService {
		return app.NewMarketService(context.Background(),
			marketDI.GetCatalog(sr),
			di.GetToken(sr, marketDI.Simulator),
			di.GetToken(sr, marketDI.Store),
		)
	})

	return nil
}

// Startup initializes the market module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	catalog := marketDI.GetCatalog(mono.Services())

	// Opens the initial quotes.
	svc := marketDI.GetMarketService(mono.Services())

	log.Info(ctx, "market module started",
		"venues", len(catalog.Venues()),
		"instruments", len(catalog.Instruments()),
		"quotes", svc.Quotes().Snapshot().Len(),
		"seeded", mono.Config().Market.Seed != 0,
	)
	return nil
}
