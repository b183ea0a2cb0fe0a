// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("arbitrage.Engine")
)

// Private dependency tokens - internal to arbitrage module
var (
	Scanner          = di.NewToken[*app.Scanner]("arbitrage:scanner")
	Executor         = di.NewToken[*app.Executor]("arbitrage:executor")
	InsightGenerator = di.NewToken[*app.InsightGenerator]("arbitrage:insightGenerator")
	Reporter         = di.NewToken[app.Reporter]("arbitrage:reporter")
	AutoTrader       = di.NewToken[*app.AutoTrader]("arbitrage:autoTrader")
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
