package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
)

const (
	tracerName = "github.com/fd1az/arbsim/business/arbitrage/app"
	meterName  = "github.com/fd1az/arbsim/business/arbitrage/app"
)

// ScannerConfig holds configuration for the arbitrage scanner.
type ScannerConfig struct {
	MinMarginBps float64 // Opportunities below this margin are dropped
}

// DefaultScannerConfig returns sensible defaults.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{MinMarginBps: 5}
}

type scannerMetrics struct {
	pairsEvaluated metric.Int64Counter
	opportunities  metric.Int64Counter
	belowThreshold metric.Int64Counter
}

// Scanner compares every ordered pair of venues per instrument.
//
// Confidence and estimated slippage are simulation placeholders: bounded
// random values scaled by the margin, not estimators.
type Scanner struct {
	config ScannerConfig
	minBps decimal.Decimal
	rng    marketDomain.RandomSource
	now    func() time.Time

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates a Scanner.
func NewScanner(cfg ScannerConfig, rng marketDomain.RandomSource) (*Scanner, error) {
	s := &Scanner{
		config: cfg,
		minBps: decimal.NewFromFloat(cfg.MinMarginBps),
		rng:    rng,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.pairsEvaluated, err = meter.Int64Counter(
		"arbitrage_pairs_evaluated_total",
		metric.WithDescription("Ordered venue pairs compared by the scanner"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return err
	}

	s.metrics.opportunities, err = meter.Int64Counter(
		"arbitrage_opportunities_detected_total",
		metric.WithDescription("Opportunities emitted by the scanner"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	s.metrics.belowThreshold, err = meter.Int64Counter(
		"arbitrage_opportunities_below_threshold_total",
		metric.WithDescription("Profitable pairs dropped for missing the minimum margin"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Scan evaluates one instrument. For every ordered pair (i, j) of distinct
// venues it buys at i's ask and sells at j's bid. (i, j) and (j, i) are
// independent and may both be emitted. The result is sorted by margin,
// descending.
func (s *Scanner) Scan(inst marketDomain.Instrument, quotes []marketDomain.Quote) []domain.Opportunity {
	return s.scan(context.Background(), 0, inst, quotes)
}

// ScanAll scans every instrument of the snapshot and ranks the combined
// result by margin, descending. Tie order is unspecified.
func (s *Scanner) ScanAll(ctx context.Context, instruments []marketDomain.Instrument, snap *marketDomain.Snapshot) []domain.Opportunity {
	ctx, span := s.tracer.Start(ctx, "arbitrage.scan",
		trace.WithAttributes(attribute.Int64("market.seq", int64(snap.Seq))))
	defer span.End()

	var all []domain.Opportunity
	for _, inst := range instruments {
		all = append(all, s.scan(ctx, snap.Seq, inst, snap.BySymbol(inst.Symbol))...)
	}
	rank(all)

	span.SetAttributes(attribute.Int("arbitrage.opportunities", len(all)))
	return all
}

func (s *Scanner) scan(ctx context.Context, seq uint64, inst marketDomain.Instrument, quotes []marketDomain.Quote) []domain.Opportunity {
	var (
		out     []domain.Opportunity
		pairs   int64
		dropped int64
		now     = s.now()
	)

	for i := range quotes {
		buy := quotes[i]
		for j := range quotes {
			if i == j || buy.Venue == quotes[j].Venue {
				continue
			}
			sell := quotes[j]
			pairs++

			// Compared in decimal: a margin of exactly MinMarginBps is emitted.
			spread := domain.CalculateCrossSpread(decimal.NewFromFloat(buy.Ask), decimal.NewFromFloat(sell.Bid))
			if !spread.IsProfitable() {
				continue
			}
			if spread.BasisPoints.LessThan(s.minBps) {
				dropped++
				continue
			}
			margin := spread.MarginPct().InexactFloat64()

			out = append(out, domain.Opportunity{
				ID:                domain.OpportunityID(domain.NewID()),
				Tick:              seq,
				Symbol:            inst.Symbol,
				BuyVenue:          buy.Venue,
				SellVenue:         sell.Venue,
				BuyPrice:          buy.Ask,
				SellPrice:         sell.Bid,
				MarginPct:         margin,
				Volume:            s.volume(inst, margin),
				Risk:              domain.ClassifyRisk(margin),
				Confidence:        s.confidence(margin),
				EstimatedSlippage: s.slippage(margin),
				CreatedAt:         now,
			})
		}
	}

	attrs := metric.WithAttributes(attribute.String("symbol", string(inst.Symbol)))
	s.metrics.pairsEvaluated.Add(ctx, pairs, attrs)
	s.metrics.opportunities.Add(ctx, int64(len(out)), attrs)
	s.metrics.belowThreshold.Add(ctx, dropped, attrs)

	rank(out)
	return out
}

// confidence grows with the margin and saturates at 20 bps, with +-0.05 noise,
// clamped to [0, 1].
func (s *Scanner) confidence(marginPct float64) float64 {
	strength := math.Min(1, marginPct*100/20)
	c := 0.55 + 0.4*strength + marketDomain.Uniform(s.rng, -0.05, 0.05)
	return math.Max(0, math.Min(1, c))
}

// slippage is between 5% and 35% of the margin, in percent.
func (s *Scanner) slippage(marginPct float64) float64 {
	return marginPct * marketDomain.Uniform(s.rng, 0.05, 0.35)
}

// volume shrinks toward the minimum as the margin grows: wide dislocations
// are thin.
func (s *Scanner) volume(inst marketDomain.Instrument, marginPct float64) float64 {
	depth := 1 / (1 + marginPct*10)
	return inst.MinVolume + (inst.MaxVolume-inst.MinVolume)*depth*s.rng.Float64()
}

func rank(opps []domain.Opportunity) {
	sort.Slice(opps, func(i, j int) bool {
		return opps[i].MarginPct > opps[j].MarginPct
	})
}
