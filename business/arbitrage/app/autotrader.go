package app

import (
	"context"
	"errors"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
	"github.com/fd1az/arbsim/internal/logger"
)

// TickFeed is the subscription side of the engine.
type TickFeed interface {
	Subscribe(buffer int) (<-chan TickResult, func())
}

// OpportunityExecutor is the command side of the engine.
type OpportunityExecutor interface {
	ExecuteOpportunity(ctx context.Context, id domain.OpportunityID) (domain.Execution, error)
}

// AutoTrader is an external caller that executes the best opportunity of
// each tick when its confidence clears a threshold. It goes through
// ExecuteOpportunity like any other caller, so it can lose races.
type AutoTrader struct {
	feed          TickFeed
	exec          OpportunityExecutor
	minConfidence float64
	logger        logger.LoggerInterface
}

// NewAutoTrader creates an AutoTrader.
func NewAutoTrader(feed TickFeed, exec OpportunityExecutor, minConfidence float64, log logger.LoggerInterface) *AutoTrader {
	return &AutoTrader{
		feed:          feed,
		exec:          exec,
		minConfidence: minConfidence,
		logger:        log,
	}
}

// Run consumes the tick feed until ctx is done or the feed closes.
func (a *AutoTrader) Run(ctx context.Context) {
	results, cancel := a.feed.Subscribe(1)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			a.onTick(ctx, result)
		}
	}
}

func (a *AutoTrader) onTick(ctx context.Context, result TickResult) {
	best, ok := a.pick(result.Opportunities)
	if !ok {
		return
	}

	_, err := a.exec.ExecuteOpportunity(ctx, best.ID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStaleOpportunity):
		a.logger.Debug(ctx, "auto trader lost the race", "opportunity_id", best.ID, "tick", result.Seq)
	default:
		a.logger.Error(ctx, "auto trader execution failed", "opportunity_id", best.ID, "error", err)
	}
}

// pick returns the highest ranked opportunity meeting the confidence threshold.
func (a *AutoTrader) pick(opps []domain.Opportunity) (domain.Opportunity, bool) {
	for _, o := range opps {
		if o.Confidence >= a.minConfidence {
			return o, true
		}
	}
	return domain.Opportunity{}, false
}
