package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbsim/business/market/app"
	meterName  = "github.com/fd1az/arbsim/business/market/app"
)

// SimulatorConfig holds the stochastic model parameters.
type SimulatorConfig struct {
	SpreadFloor float64 // Minimum absolute bid/ask spread
	Reversion   float64 // Fraction of the gap to base price closed per tick, in [0, 1)
}

// DefaultSimulatorConfig returns sensible defaults.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		SpreadFloor: 0.0001,
		Reversion:   0.02,
	}
}

type simulatorMetrics struct {
	quotesAdvanced metric.Int64Counter
	spreadClamps   metric.Int64Counter
}

// Simulator advances quotes by one stochastic step.
type Simulator struct {
	config SimulatorConfig
	rng    domain.RandomSource
	logger logger.LoggerInterface
	now    func() time.Time

	metrics *simulatorMetrics
}

// NewSimulator creates a Simulator drawing from rng.
func NewSimulator(cfg SimulatorConfig, rng domain.RandomSource, log logger.LoggerInterface) (*Simulator, error) {
	if cfg.SpreadFloor <= 0 {
		return nil, apperror.Configuration("spread floor must be positive")
	}
	if cfg.Reversion < 0 || cfg.Reversion >= 1 {
		return nil, apperror.Configuration("reversion must be in [0, 1)")
	}

	s := &Simulator{
		config: cfg,
		rng:    rng,
		logger: log,
		now:    time.Now,
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *Simulator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &simulatorMetrics{}

	s.metrics.quotesAdvanced, err = meter.Int64Counter(
		"market_quotes_advanced_total",
		metric.WithDescription("Total quote updates produced by the simulator"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	s.metrics.spreadClamps, err = meter.Int64Counter(
		"market_spread_clamps_total",
		metric.WithDescription("Quote updates whose spread was widened to the floor"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Open produces the first quote for venue and instrument. Each venue starts
// from the base price offset by a random skew of up to two typical spreads.
func (s *Simulator) Open(ctx context.Context, venue domain.Venue, inst domain.Instrument) domain.Quote {
	spread := inst.TypicalSpread()
	skew := domain.Uniform(s.rng, -2, 2) * spread
	mid := inst.BasePrice + skew

	q := domain.Quote{
		Venue:  venue.ID,
		Symbol: inst.Symbol,
		Bid:    mid - spread/2,
		Ask:    mid + spread/2,
		At:     s.now(),
	}
	return s.enforce(ctx, q, q)
}

// Advance moves q one step. The mid takes a normal shock scaled by the
// instrument's volatility plus a pull toward the base price; the spread is
// redrawn around its typical value. The result always satisfies Bid < Ask.
func (s *Simulator) Advance(ctx context.Context, venue domain.Venue, inst domain.Instrument, q domain.Quote) domain.Quote {
	shock := s.rng.NormFloat64() * inst.Sigma()
	pull := s.config.Reversion * (inst.BasePrice - q.Mid())
	delta := shock + pull

	bid := q.Bid + delta
	spread := inst.TypicalSpread() * (1 + 0.5*s.rng.NormFloat64())

	next := domain.Quote{
		Venue:  venue.ID,
		Symbol: inst.Symbol,
		Bid:    bid,
		Ask:    bid + spread,
		At:     s.now(),
	}

	s.metrics.quotesAdvanced.Add(ctx, 1,
		metric.WithAttributes(attribute.String("venue", string(venue.ID))))

	return s.enforce(ctx, q, next)
}

// enforce repairs next in place so that it is a valid quote. prev is the
// fallback when next is not finite.
func (s *Simulator) enforce(ctx context.Context, prev, next domain.Quote) domain.Quote {
	if next.Valid() && next.Spread() >= s.config.SpreadFloor {
		return next
	}

	floor := s.config.SpreadFloor
	reason := "spread below floor"

	switch {
	case math.IsNaN(next.Bid) || math.IsInf(next.Bid, 0):
		reason = "non-finite bid"
		next.Bid = prev.Bid
		if !(next.Bid > 0) || math.IsInf(next.Bid, 0) {
			next.Bid = floor
		}
	case next.Bid <= 0:
		reason = "non-positive bid"
		next.Bid = floor
	}

	if math.IsNaN(next.Ask) || math.IsInf(next.Ask, 0) || !(next.Ask-next.Bid >= floor) {
		next.Ask = next.Bid + floor
	}

	s.metrics.spreadClamps.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("venue", string(next.Venue)),
			attribute.String("symbol", string(next.Symbol)),
		))
	s.logger.Debug(ctx, "quote clamped",
		"code", apperror.CodeSimulationInvariantViolation,
		"reason", reason,
		"venue", next.Venue,
		"symbol", next.Symbol,
		"bid", next.Bid,
		"ask", next.Ask,
	)

	return next
}
