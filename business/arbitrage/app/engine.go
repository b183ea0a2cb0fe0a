package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbsim/business/market/app"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/circuitbreaker"
	"github.com/fd1az/arbsim/internal/logger"
	"github.com/fd1az/arbsim/internal/pubsub"
)

// EngineConfig holds configuration for the engine.
type EngineConfig struct {
	TickInterval time.Duration
	// Breaker guards tick execution; consecutive failed ticks open it.
	Breaker circuitbreaker.Config
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval: 250 * time.Millisecond,
		Breaker:      circuitbreaker.DefaultConfig("arbitrage-tick"),
	}
}

type engineMetrics struct {
	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
	overruns     metric.Int64Counter
	skipped      metric.Int64Counter
	failed       metric.Int64Counter
}

// Engine owns all mutable simulation state and is the only way to reach it:
// the tick pipeline, the opportunity set, the ledgers and the feeds.
type Engine struct {
	config   EngineConfig
	market   *marketApp.MarketService
	scanner  *Scanner
	executor *Executor
	insights *InsightGenerator
	logger   logger.LoggerInterface

	ticks   *pubsub.Hub[TickResult]
	breaker *circuitbreaker.CircuitBreaker[TickResult]
	clock   func() time.Time
	counts  schedulerCounts

	// tickMu makes Tick single-caller.
	tickMu   sync.Mutex
	lastTick atomic.Int64

	// Scheduler state, see scheduler.go.
	runMu   sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	tracer  trace.Tracer
	metrics *engineMetrics
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(
	cfg EngineConfig,
	market *marketApp.MarketService,
	scanner *Scanner,
	executor *Executor,
	insights *InsightGenerator,
	log logger.LoggerInterface,
) (*Engine, error) {
	if cfg.TickInterval <= 0 {
		return nil, apperror.Configuration("tick interval must be positive")
	}

	e := &Engine{
		config:   cfg,
		market:   market,
		scanner:  scanner,
		executor: executor,
		insights: insights,
		logger:   log,
		ticks:    pubsub.NewHub[TickResult](),
		clock:    time.Now,
		tracer:   otel.Tracer(tracerName),
	}

	breakerCfg := cfg.Breaker
	if breakerCfg.Name == "" {
		breakerCfg = circuitbreaker.DefaultConfig("arbitrage-tick")
	}
	onChange := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
		if onChange != nil {
			onChange(name, from, to)
		}
	}
	e.breaker = circuitbreaker.New[TickResult](breakerCfg)

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

// initMetrics initializes OTEL metric instruments.
func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.ticks, err = meter.Int64Counter(
		"arbitrage_ticks_total",
		metric.WithDescription("Completed ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return err
	}

	e.metrics.tickDuration, err = meter.Float64Histogram(
		"arbitrage_tick_duration_ms",
		metric.WithDescription("Wall time of simulate + scan + publish"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	e.metrics.overruns, err = meter.Int64Counter(
		"arbitrage_tick_overruns_total",
		metric.WithDescription("Ticks that took longer than the tick interval"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return err
	}

	e.metrics.skipped, err = meter.Int64Counter(
		"arbitrage_ticks_skipped_total",
		metric.WithDescription("Ticks skipped after an overrun or while the breaker is open"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return err
	}

	e.metrics.failed, err = meter.Int64Counter(
		"arbitrage_ticks_failed_total",
		metric.WithDescription("Ticks dropped because of an internal error"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.Int64ObservableCounter(
		"arbitrage_feed_dropped_total",
		metric.WithDescription("Tick results dropped for slow subscribers"),
		metric.WithUnit("{message}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(e.ticks.Dropped()))
			return nil
		}),
	)
	return err
}

// Tick advances simulated time once: every quote moves, the active set is
// replaced by a fresh scan and subscribers are notified. A tick either
// publishes completely or not at all; a failed tick leaves the previous
// state in place and returns an error. Panics are recovered.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	result, err := e.breaker.Execute(func() (TickResult, error) {
		return e.tick(ctx)
	})
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeCircuitOpen {
			e.counts.skipped.Add(1)
			e.metrics.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "circuit_open")))
			return TickResult{}, err
		}
		e.counts.failed.Add(1)
		e.metrics.failed.Add(ctx, 1)
		return TickResult{}, apperror.New(apperror.CodeTickFailed,
			apperror.WithContext("tick"), apperror.WithCause(err))
	}
	return result, nil
}

func (e *Engine) tick(ctx context.Context) (TickResult, error) {
	ctx, span := e.tracer.Start(ctx, "arbitrage.tick")
	defer span.End()

	start := e.clock()

	// Compute everything before publishing anything.
	snap := e.market.Next(ctx)
	opps := e.scanner.ScanAll(ctx, e.market.Catalog().Instruments(), snap)

	e.market.Commit(snap)
	e.executor.Replace(opps)

	result := TickResult{
		Seq:           snap.Seq,
		At:            snap.At,
		Duration:      e.clock().Sub(start),
		Quotes:        snap,
		Opportunities: slices.Clone(opps),
	}
	e.ticks.Publish(result)
	e.lastTick.Store(snap.At.UnixNano())

	e.counts.ticks.Add(1)
	e.metrics.ticks.Add(ctx, 1)
	e.metrics.tickDuration.Record(ctx, float64(result.Duration)/float64(time.Millisecond))
	span.SetAttributes(
		attribute.Int64("tick.seq", int64(result.Seq)),
		attribute.Int("tick.opportunities", len(opps)),
	)
	span.SetStatus(codes.Ok, "")

	return result, nil
}

// ExecuteOpportunity claims id and records its trade pair. It returns an
// error matching domain.ErrStaleOpportunity when id is no longer active.
func (e *Engine) ExecuteOpportunity(ctx context.Context, id domain.OpportunityID) (domain.Execution, error) {
	return e.executor.Execute(ctx, id)
}

// Subscribe streams every tick result. Slow subscribers lose their oldest
// pending result; the scheduler never waits.
func (e *Engine) Subscribe(buffer int) (<-chan TickResult, func()) {
	return e.ticks.Subscribe(buffer)
}

// SubscribeInsights streams emitted insights.
func (e *Engine) SubscribeInsights(buffer int) (<-chan domain.Insight, func()) {
	return e.insights.Subscribe(buffer)
}

// SubscribeExecutions streams executed trade pairs.
func (e *Engine) SubscribeExecutions(buffer int) (<-chan domain.Execution, func()) {
	return e.executor.SubscribeExecutions(buffer)
}

// Quotes returns the latest published snapshot.
func (e *Engine) Quotes() *marketDomain.Snapshot {
	return e.market.Quotes().Snapshot()
}

// History returns the recorded quotes for venue and symbol, oldest first.
func (e *Engine) History(venue marketDomain.VenueID, symbol marketDomain.Symbol) ([]marketDomain.HistoryPoint, error) {
	if _, err := e.market.Catalog().Venue(venue); err != nil {
		return nil, err
	}
	if _, err := e.market.Catalog().Instrument(symbol); err != nil {
		return nil, err
	}
	return e.market.Quotes().History(venue, symbol)
}

// Opportunities returns the executable opportunities, ranked.
func (e *Engine) Opportunities() []domain.Opportunity {
	return e.executor.Active()
}

// Trades returns the trade ledger, oldest first.
func (e *Engine) Trades() []domain.TradeRecord {
	return e.executor.Trades()
}

// Insights returns the insight ledger, oldest first.
func (e *Engine) Insights() []domain.Insight {
	return e.insights.Insights()
}

// Stats summarizes the trade ledger.
func (e *Engine) Stats() LedgerStats {
	return e.executor.Stats()
}

// Catalog returns the simulated venues and instruments.
func (e *Engine) Catalog() *marketApp.Catalog {
	return e.market.Catalog()
}

// LastTickAt returns when the last successful tick was published.
func (e *Engine) LastTickAt() time.Time {
	n := e.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// TickInterval returns the scheduler period.
func (e *Engine) TickInterval() time.Duration {
	return e.config.TickInterval
}

// BreakerState returns the tick circuit breaker state.
func (e *Engine) BreakerState() gobreaker.State {
	return e.breaker.State()
}
