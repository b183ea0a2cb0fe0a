// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/arbsim/business/market/app"
	"github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Catalog       = di.NewToken[*app.Catalog]("market.Catalog")
	MarketService = di.NewToken[*app.MarketService]("market.MarketService")
	QuoteReader   = di.NewToken[app.QuoteReader]("market.QuoteReader")
	RandomSource  = di.NewToken[domain.RandomSource]("market.RandomSource")
)

// Private dependency tokens - internal to market module
var (
	Simulator = di.NewToken[*app.Simulator]("market:simulator")
	Store     = di.NewToken[*app.Store]("market:store")
)

// Helper functions for type-safe access
func GetCatalog(c di.ServiceRegistry) *app.Catalog {
	return di.GetToken(c, Catalog)
}

func GetMarketService(c di.ServiceRegistry) *app.MarketService {
	return di.GetToken(c, MarketService)
}

func GetQuoteReader(c di.ServiceRegistry) app.QuoteReader {
	return di.GetToken(c, QuoteReader)
}

func GetRandomSource(c di.ServiceRegistry) domain.RandomSource {
	return di.GetToken(c, RandomSource)
}
