package app

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	marketApp "github.com/fd1az/arbsim/business/market/app"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/asset"
	"github.com/fd1az/arbsim/internal/circuitbreaker"
	"github.com/fd1az/arbsim/internal/logger"
)

// switchableSource panics on every draw while armed.
type switchableSource struct {
	src   marketDomain.RandomSource
	armed atomic.Bool
}

func (s *switchableSource) Float64() float64 {
	if s.armed.Load() {
		panic("random source exploded")
	}
	return s.src.Float64()
}

func (s *switchableSource) NormFloat64() float64 {
	if s.armed.Load() {
		panic("random source exploded")
	}
	return s.src.NormFloat64()
}

// fakeClock advances by step on every call.
type fakeClock struct {
	now  atomic.Int64
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.now.Add(int64(c.step)))
}

func instrument(t *testing.T, symbol string, base, vol, spreadBps float64) marketDomain.Instrument {
	t.Helper()
	pair, err := asset.DefaultRegistry().ParsePair(symbol)
	require.NoError(t, err)
	return marketDomain.Instrument{
		Symbol:          marketDomain.Symbol(pair.String()),
		Pair:            pair,
		BasePrice:       base,
		VolatilityIndex: vol,
		SpreadBps:       spreadBps,
		MinVolume:       100_000,
		MaxVolume:       1_000_000,
	}
}

func testCatalog(t *testing.T, instruments ...marketDomain.Instrument) *marketApp.Catalog {
	t.Helper()
	if len(instruments) == 0 {
		instruments = []marketDomain.Instrument{
			instrument(t, "EUR/USD", 1.0850, 1, 0.9),
			instrument(t, "XAU/USD", 2350, 3, 2.5),
		}
	}
	cat, err := marketApp.NewCatalog([]marketDomain.Venue{
		{ID: "v1", Name: "Venue One", Latency: 4 * time.Millisecond},
		{ID: "v2", Name: "Venue Two", Latency: 7 * time.Millisecond},
		{ID: "v3", Name: "Venue Three", Latency: 11 * time.Millisecond},
	}, instruments)
	require.NoError(t, err)
	return cat
}

// volatileCatalog moves prices far more than spreads, so nearly every tick
// has opportunities.
func volatileCatalog(t *testing.T) *marketApp.Catalog {
	return testCatalog(t,
		instrument(t, "EUR/USD", 1.0850, 40, 0.5),
		instrument(t, "GBP/USD", 1.2710, 40, 0.5),
	)
}

type engineFixture struct {
	engine   *Engine
	executor *Executor
	rng      *switchableSource
}

func newEngine(t *testing.T, cat *marketApp.Catalog, cfg EngineConfig, seed uint64) *engineFixture {
	t.Helper()
	log := logger.NewNop()
	rng := &switchableSource{src: marketDomain.NewSeededSource(seed)}

	sim, err := marketApp.NewSimulator(marketApp.DefaultSimulatorConfig(), rng, log)
	require.NoError(t, err)
	store := marketApp.NewStore(100)
	market := marketApp.NewMarketService(t.Context(), cat, sim, store)

	scanner, err := NewScanner(DefaultScannerConfig(), rng)
	require.NoError(t, err)

	executor, err := NewExecutor(100, cat, rng, log)
	require.NoError(t, err)

	insights, err := NewInsightGenerator(DefaultInsightConfig(), cat, store, executor, rng, log)
	require.NoError(t, err)

	if cfg.Breaker.Name == "" {
		cfg.Breaker = circuitbreaker.DefaultConfig("test-tick")
	}
	engine, err := NewEngine(cfg, market, scanner, executor, insights, log)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, executor: executor, rng: rng}
}

// tickUntilOpportunities ticks until the active set is non-empty.
func tickUntilOpportunities(t *testing.T, e *Engine) TickResult {
	t.Helper()
	for range 500 {
		res, err := e.Tick(t.Context())
		require.NoError(t, err)
		if len(res.Opportunities) > 0 {
			return res
		}
	}
	t.Fatal("no opportunity after 500 ticks")
	return TickResult{}
}
