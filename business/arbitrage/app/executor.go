package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/logger"
	"github.com/fd1az/arbsim/internal/pubsub"
)

var _ OpportunitySource = (*Executor)(nil)

// LedgerStats summarizes executions over the ledger window.
type LedgerStats struct {
	Executions      uint64                                  `json:"executions"`
	StaleRejections uint64                                  `json:"stale_rejections"`
	TradesRetained  int                                     `json:"trades_retained"`
	TradesTotal     uint64                                  `json:"trades_total"`
	PnLBySymbol     map[marketDomain.Symbol]decimal.Decimal `json:"pnl_by_symbol"`
}

type executorMetrics struct {
	executions metric.Int64Counter
	latency    metric.Float64Histogram
}

// Executor owns the active opportunity set and the trade ledger.
//
// Replace swaps the whole set once per tick; Execute removes a single entry.
// Both run under one mutex, so a given id is executed at most once.
type Executor struct {
	mu     sync.Mutex
	active map[domain.OpportunityID]domain.Opportunity
	ranked []domain.Opportunity

	trades     *Ledger[domain.TradeRecord]
	executions *pubsub.Hub[domain.Execution]
	venues     VenueDirectory
	rng        marketDomain.RandomSource
	logger     logger.LoggerInterface
	now        func() time.Time

	executed atomic.Uint64
	stale    atomic.Uint64

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an Executor with a trade ledger of ledgerCap entries.
func NewExecutor(ledgerCap int, venues VenueDirectory, rng marketDomain.RandomSource, log logger.LoggerInterface) (*Executor, error) {
	e := &Executor{
		active:     make(map[domain.OpportunityID]domain.Opportunity),
		trades:     NewLedger[domain.TradeRecord](ledgerCap),
		executions: pubsub.NewHub[domain.Execution](),
		venues:     venues,
		rng:        rng,
		logger:     log,
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

// initMetrics initializes OTEL metric instruments.
func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.executions, err = meter.Int64Counter(
		"arbitrage_executions_total",
		metric.WithDescription("Execution requests by result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	e.metrics.latency, err = meter.Float64Histogram(
		"arbitrage_simulated_execution_ms",
		metric.WithDescription("Simulated execution time per trade leg"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	_, err = meter.Int64ObservableGauge(
		"arbitrage_opportunities_active",
		metric.WithDescription("Opportunities currently executable"),
		metric.WithUnit("{opportunity}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			e.mu.Lock()
			n := len(e.active)
			e.mu.Unlock()
			o.Observe(int64(n))
			return nil
		}),
	)
	return err
}

// Replace makes opps the active set. Anything not in opps is gone, executed or not.
func (e *Executor) Replace(opps []domain.Opportunity) {
	active := make(map[domain.OpportunityID]domain.Opportunity, len(opps))
	for _, o := range opps {
		active[o.ID] = o
	}

	e.mu.Lock()
	e.active = active
	e.ranked = opps
	e.mu.Unlock()
}

// Execute atomically claims id and records a BUY and a SELL leg for it.
// Unknown, superseded and already executed ids yield a STALE_OPPORTUNITY error.
func (e *Executor) Execute(ctx context.Context, id domain.OpportunityID) (domain.Execution, error) {
	ctx, span := e.tracer.Start(ctx, "arbitrage.execute",
		trace.WithAttributes(attribute.String("opportunity.id", string(id))))
	defer span.End()

	opp, ok := e.claim(id)
	if !ok {
		e.stale.Add(1)
		e.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "stale")))
		span.SetStatus(codes.Error, "stale opportunity")
		e.logger.Debug(ctx, "execution rejected, opportunity is stale", "opportunity_id", id)
		return domain.Execution{}, domain.NewStaleOpportunityError(id)
	}

	now := e.now()
	exec := domain.Execution{
		Buy:  e.leg(opp, domain.SideBuy, opp.BuyVenue, opp.BuyPrice, now),
		Sell: e.leg(opp, domain.SideSell, opp.SellVenue, opp.SellPrice, now),
	}
	e.trades.Append(exec.Buy, exec.Sell)
	e.executed.Add(1)

	e.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
	e.metrics.latency.Record(ctx, float64(exec.Buy.ExecutionTime)/float64(time.Millisecond))
	e.metrics.latency.Record(ctx, float64(exec.Sell.ExecutionTime)/float64(time.Millisecond))
	span.SetAttributes(
		attribute.String("symbol", string(opp.Symbol)),
		attribute.Float64("margin_pct", opp.MarginPct),
	)

	e.logger.Info(ctx, "opportunity executed",
		"opportunity_id", id,
		"symbol", opp.Symbol,
		"buy_venue", opp.BuyVenue,
		"sell_venue", opp.SellVenue,
		"pnl", exec.RealizedPnL().StringFixed(4),
	)

	e.executions.Publish(exec)
	return exec, nil
}

// claim is the compare-and-remove on the active set.
func (e *Executor) claim(id domain.OpportunityID) (domain.Opportunity, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	opp, ok := e.active[id]
	if ok {
		delete(e.active, id)
	}
	return opp, ok
}

func (e *Executor) leg(opp domain.Opportunity, side domain.Side, venue marketDomain.VenueID, price float64, now time.Time) domain.TradeRecord {
	var latency time.Duration
	if v, err := e.venues.Venue(venue); err == nil {
		latency = v.Latency
	}
	jitter := time.Duration(marketDomain.Uniform(e.rng, 0.2, 2.0) * float64(time.Millisecond))
	execTime := time.Duration(float64(latency)*marketDomain.Uniform(e.rng, 1, 1.5)) + jitter

	return domain.TradeRecord{
		ID:            domain.NewID(),
		OpportunityID: opp.ID,
		Symbol:        opp.Symbol,
		Side:          side,
		Venue:         venue,
		Price:         price,
		Volume:        opp.Volume,
		SlippagePct:   opp.EstimatedSlippage / 2 * marketDomain.Uniform(e.rng, 0.5, 1.5),
		ExecutionTime: execTime,
		Timestamp:     now.Add(execTime),
	}
}

// Active returns the executable opportunities in rank order.
func (e *Executor) Active() []domain.Opportunity {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Opportunity, 0, len(e.active))
	for _, o := range e.ranked {
		if _, ok := e.active[o.ID]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Trades returns the trade ledger, oldest first.
func (e *Executor) Trades() []domain.TradeRecord {
	return e.trades.Items()
}

// SubscribeExecutions streams every successful execution.
func (e *Executor) SubscribeExecutions(buffer int) (<-chan domain.Execution, func()) {
	return e.executions.Subscribe(buffer)
}

// Stats summarizes the ledger. P&L is computed per symbol, in the quote
// currency, over the pairs still fully retained by the ledger.
func (e *Executor) Stats() LedgerStats {
	trades := e.trades.Items()

	type legs struct{ buy, sell *domain.TradeRecord }
	byOpp := make(map[domain.OpportunityID]*legs)
	for i := range trades {
		t := &trades[i]
		l, ok := byOpp[t.OpportunityID]
		if !ok {
			l = &legs{}
			byOpp[t.OpportunityID] = l
		}
		if t.Side == domain.SideBuy {
			l.buy = t
		} else {
			l.sell = t
		}
	}

	pnl := make(map[marketDomain.Symbol]decimal.Decimal)
	for _, l := range byOpp {
		if l.buy == nil || l.sell == nil {
			continue
		}
		exec := domain.Execution{Buy: *l.buy, Sell: *l.sell}
		pnl[l.buy.Symbol] = pnl[l.buy.Symbol].Add(exec.RealizedPnL())
	}

	return LedgerStats{
		Executions:      e.executed.Load(),
		StaleRejections: e.stale.Load(),
		TradesRetained:  len(trades),
		TradesTotal:     e.trades.Total(),
		PnLBySymbol:     pnl,
	}
}

// Close ends every execution subscription.
func (e *Executor) Close() {
	e.executions.Close()
}
