package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbsim/business/market/app"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/circuitbreaker"
	"github.com/fd1az/arbsim/internal/logger"
	"github.com/fd1az/arbsim/internal/pubsub"
)

// InsightConfig holds configuration for the insight generator.
type InsightConfig struct {
	Interval    time.Duration // Time between evaluation cycles
	Probability float64       // Chance that a fired heuristic is emitted
	Window      int           // History points inspected per quote
	LedgerCap   int
}

// DefaultInsightConfig returns sensible defaults.
func DefaultInsightConfig() InsightConfig {
	return InsightConfig{
		Interval:    5 * time.Second,
		Probability: 0.7,
		Window:      20,
		LedgerCap:   100,
	}
}

// Heuristic thresholds. A candidate's strength is observed/threshold, so
// every candidate has strength >= 1.
const (
	spreadWideningRatio   = 2.0 // current spread vs window mean
	dislocationSpreads    = 3.0 // venue mid vs cross-venue median, in typical spreads
	volatilitySpikeRatio  = 1.8 // realized step stdev vs model sigma
	arbitrageClusterCount = 3   // active opportunities on one symbol
)

type insightCandidate struct {
	kind        domain.InsightKind
	strength    float64
	summary     string
	instruments []marketDomain.Symbol
	venues      []marketDomain.VenueID
}

type insightMetrics struct {
	cycles  metric.Int64Counter
	emitted metric.Int64Counter
}

// InsightGenerator periodically inspects recent quotes and the active
// opportunity set and sometimes emits an Insight. It never touches execution.
type InsightGenerator struct {
	config  InsightConfig
	catalog *marketApp.Catalog
	quotes  marketApp.QuoteReader
	opps    OpportunitySource
	rng     marketDomain.RandomSource
	logger  logger.LoggerInterface
	now     func() time.Time

	ledger  *Ledger[domain.Insight]
	hub     *pubsub.Hub[domain.Insight]
	breaker *circuitbreaker.CircuitBreaker[domain.Insight]

	metrics *insightMetrics
}

// NewInsightGenerator creates an InsightGenerator.
func NewInsightGenerator(
	cfg InsightConfig,
	catalog *marketApp.Catalog,
	quotes marketApp.QuoteReader,
	opps OpportunitySource,
	rng marketDomain.RandomSource,
	log logger.LoggerInterface,
) (*InsightGenerator, error) {
	if cfg.Window < 3 {
		cfg.Window = 3
	}

	g := &InsightGenerator{
		config:  cfg,
		catalog: catalog,
		quotes:  quotes,
		opps:    opps,
		rng:     rng,
		logger:  log,
		now:     time.Now,
		ledger:  NewLedger[domain.Insight](cfg.LedgerCap),
		hub:     pubsub.NewHub[domain.Insight](),
		breaker: circuitbreaker.New[domain.Insight](circuitbreaker.DefaultConfig("arbitrage-insights")),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

// initMetrics initializes OTEL metric instruments.
func (g *InsightGenerator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &insightMetrics{}

	g.metrics.cycles, err = meter.Int64Counter(
		"arbitrage_insight_cycles_total",
		metric.WithDescription("Insight evaluation cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return err
	}

	g.metrics.emitted, err = meter.Int64Counter(
		"arbitrage_insights_emitted_total",
		metric.WithDescription("Insights emitted by kind"),
		metric.WithUnit("{insight}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run evaluates on its own ticker until ctx is done.
func (g *InsightGenerator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.cycle(ctx)
		}
	}
}

// cycle runs Generate through the breaker. A failed or panicking cycle is
// dropped and logged; the loop keeps going.
func (g *InsightGenerator) cycle(ctx context.Context) error {
	_, err := g.breaker.Execute(func() (domain.Insight, error) {
		insight, _ := g.Generate(ctx)
		return insight, nil
	})
	if err == nil {
		return nil
	}

	if apperror.GetCode(err) == apperror.CodeCircuitOpen {
		g.logger.Warn(ctx, "insight cycle skipped, circuit open")
	} else {
		g.logger.Error(ctx, "insight cycle dropped", apperror.Wrap(err, apperror.CodeInternalError, "insight cycle").LogArgs()...)
	}
	return err
}

// Generate runs one cycle. It returns the emitted insight, or false when
// nothing fired or the draw declined to emit.
func (g *InsightGenerator) Generate(ctx context.Context) (domain.Insight, bool) {
	g.metrics.cycles.Add(ctx, 1)

	candidates := g.evaluate()
	if len(candidates) == 0 {
		return domain.Insight{}, false
	}
	if g.rng.Float64() >= g.config.Probability {
		return domain.Insight{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].strength > candidates[j].strength
	})
	top := candidates[0]

	insight := domain.Insight{
		ID:          domain.NewID(),
		Kind:        top.kind,
		Severity:    severityFor(top.strength),
		Summary:     top.summary,
		Instruments: top.instruments,
		Venues:      top.venues,
		Confidence:  math.Min(0.99, 0.5+0.2*(top.strength-1)+marketDomain.Uniform(g.rng, 0, 0.1)),
		Timestamp:   g.now(),
	}

	g.ledger.Append(insight)
	g.hub.Publish(insight)
	g.metrics.emitted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(insight.Kind))))
	g.logger.Info(ctx, "insight emitted",
		"kind", insight.Kind,
		"severity", insight.Severity,
		"summary", insight.Summary,
	)

	return insight, true
}

func (g *InsightGenerator) evaluate() []insightCandidate {
	var out []insightCandidate
	snap := g.quotes.Snapshot()

	for _, inst := range g.catalog.Instruments() {
		quotes := snap.BySymbol(inst.Symbol)
		if len(quotes) == 0 {
			continue
		}

		mids := make([]float64, len(quotes))
		for i, q := range quotes {
			mids[i] = q.Mid()
		}
		median := medianOf(mids)
		typical := inst.TypicalSpread()

		for _, q := range quotes {
			recent := g.quotes.Recent(q.Venue, q.Symbol, g.config.Window)

			if c, ok := spreadWidening(inst, q, recent); ok {
				out = append(out, c)
			}
			if c, ok := volatilitySpike(inst, q.Venue, recent); ok {
				out = append(out, c)
			}
			if typical > 0 {
				dev := math.Abs(q.Mid()-median) / typical
				if dev >= dislocationSpreads {
					out = append(out, insightCandidate{
						kind:     domain.InsightPriceDislocation,
						strength: dev / dislocationSpreads,
						summary: fmt.Sprintf("%s on %s is %.1f spreads away from the cross-venue median %s",
							inst.Symbol, q.Venue, dev, inst.FormatPrice(median)),
						instruments: []marketDomain.Symbol{inst.Symbol},
						venues:      []marketDomain.VenueID{q.Venue},
					})
				}
			}
		}
	}

	bySymbol := make(map[marketDomain.Symbol][]domain.Opportunity)
	for _, o := range g.opps.Active() {
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o)
	}
	for symbol, opps := range bySymbol {
		if len(opps) < arbitrageClusterCount {
			continue
		}
		venues := make(map[marketDomain.VenueID]struct{})
		for _, o := range opps {
			venues[o.BuyVenue] = struct{}{}
			venues[o.SellVenue] = struct{}{}
		}
		out = append(out, insightCandidate{
			kind:     domain.InsightArbitrageCluster,
			strength: float64(len(opps)) / arbitrageClusterCount,
			summary: fmt.Sprintf("%d simultaneous arbitrage routes on %s, best %.4f%%",
				len(opps), symbol, opps[0].MarginPct),
			instruments: []marketDomain.Symbol{symbol},
			venues:      sortedVenues(venues),
		})
	}

	return out
}

func spreadWidening(inst marketDomain.Instrument, q marketDomain.Quote, recent []marketDomain.HistoryPoint) (insightCandidate, bool) {
	if len(recent) < 3 {
		return insightCandidate{}, false
	}
	var sum float64
	for _, p := range recent {
		sum += p.Ask - p.Bid
	}
	mean := sum / float64(len(recent))
	if mean <= 0 {
		return insightCandidate{}, false
	}

	ratio := q.Spread() / mean
	if ratio < spreadWideningRatio {
		return insightCandidate{}, false
	}
	return insightCandidate{
		kind:     domain.InsightSpreadWidening,
		strength: ratio / spreadWideningRatio,
		summary: fmt.Sprintf("%s spread on %s widened to %.1f bps, %.1fx its recent average",
			inst.Symbol, q.Venue, q.SpreadBps(), ratio),
		instruments: []marketDomain.Symbol{inst.Symbol},
		venues:      []marketDomain.VenueID{q.Venue},
	}, true
}

func volatilitySpike(inst marketDomain.Instrument, venue marketDomain.VenueID, recent []marketDomain.HistoryPoint) (insightCandidate, bool) {
	sigma := inst.Sigma()
	if len(recent) < 3 || sigma <= 0 {
		return insightCandidate{}, false
	}

	steps := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		prev := (recent[i-1].Bid + recent[i-1].Ask) / 2
		cur := (recent[i].Bid + recent[i].Ask) / 2
		steps = append(steps, cur-prev)
	}
	ratio := stdDev(steps) / sigma
	if ratio < volatilitySpikeRatio {
		return insightCandidate{}, false
	}
	return insightCandidate{
		kind:     domain.InsightVolatilitySpike,
		strength: ratio / volatilitySpikeRatio,
		summary: fmt.Sprintf("%s on %s is moving %.1fx its normal per-tick volatility",
			inst.Symbol, venue, ratio),
		instruments: []marketDomain.Symbol{inst.Symbol},
		venues:      []marketDomain.VenueID{venue},
	}, true
}

func severityFor(strength float64) domain.Severity {
	switch {
	case strength >= 2:
		return domain.SeverityCritical
	case strength >= 1.5:
		return domain.SeverityWarning
	default:
		return domain.SeverityInfo
	}
}

// Insights returns the insight ledger, oldest first.
func (g *InsightGenerator) Insights() []domain.Insight {
	return g.ledger.Items()
}

// Subscribe streams emitted insights.
func (g *InsightGenerator) Subscribe(buffer int) (<-chan domain.Insight, func()) {
	return g.hub.Subscribe(buffer)
}

// Close ends every insight subscription.
func (g *InsightGenerator) Close() {
	g.hub.Close()
}

func medianOf(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func sortedVenues(set map[marketDomain.VenueID]struct{}) []marketDomain.VenueID {
	out := make([]marketDomain.VenueID, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
