package infra

import (
	"context"

	"github.com/fd1az/arbsim/business/arbitrage/app"
	"github.com/fd1az/arbsim/business/arbitrage/domain"
	"github.com/fd1az/arbsim/internal/logger"
)

// LogReporter implements Reporter through the structured logger.
type LogReporter struct {
	logger      logger.LoggerInterface
	instruments InstrumentLookup
}

// NewLogReporter creates a new LogReporter.
func NewLogReporter(log logger.LoggerInterface, instruments InstrumentLookup) *LogReporter {
	return &LogReporter{
		logger:      log,
		instruments: instruments,
	}
}

func (r *LogReporter) Start(ctx context.Context) error {
	r.logger.Info(ctx, "reporter started")
	return nil
}

// ReportTick logs the best opportunity of the tick, if any.
func (r *LogReporter) ReportTick(ctx context.Context, result app.TickResult) {
	if len(result.Opportunities) == 0 {
		r.logger.Info(ctx, "tick", "seq", result.Seq, "opportunities", 0, "duration", result.Duration)
		return
	}

	best := result.Opportunities[0]
	args := []any{
		"seq", result.Seq,
		"opportunities", len(result.Opportunities),
		"duration", result.Duration,
		"best_symbol", best.Symbol,
		"best_route", best.Direction().String(),
		"best_margin_bps", best.MarginBps(),
		"best_expected_profit", best.ExpectedProfit().StringFixed(2),
		"best_risk", best.Risk,
	}
	if inst, err := r.instruments.Instrument(best.Symbol); err == nil {
		args = append(args,
			"best_buy", inst.FormatPrice(best.BuyPrice),
			"best_sell", inst.FormatPrice(best.SellPrice),
		)
	}
	r.logger.Info(ctx, "tick", args...)
}

func (r *LogReporter) ReportExecution(ctx context.Context, exec domain.Execution) {
	r.logger.Info(ctx, "trade pair executed",
		"opportunity_id", exec.Buy.OpportunityID,
		"symbol", exec.Buy.Symbol,
		"buy_venue", exec.Buy.Venue,
		"sell_venue", exec.Sell.Venue,
		"volume", exec.Buy.Volume,
		"pnl", exec.RealizedPnL().StringFixed(2),
	)
}

func (r *LogReporter) ReportInsight(ctx context.Context, insight domain.Insight) {
	r.logger.Info(ctx, "insight",
		"kind", insight.Kind,
		"severity", insight.Severity,
		"summary", insight.Summary,
		"confidence", insight.Confidence,
	)
}

func (r *LogReporter) Stop() error {
	r.logger.Info(context.Background(), "reporter stopped")
	return nil
}
