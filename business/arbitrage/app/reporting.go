package app

import (
	"context"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
)

// EngineFeeds is every subscription the engine offers.
type EngineFeeds interface {
	TickFeed
	SubscribeInsights(buffer int) (<-chan domain.Insight, func())
	SubscribeExecutions(buffer int) (<-chan domain.Execution, func())
}

// RunReporter forwards engine feeds to r until ctx is done. Only every
// every-th tick is reported; executions and insights always are.
func RunReporter(ctx context.Context, feeds EngineFeeds, r Reporter, every int) error {
	if every < 1 {
		every = 1
	}

	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	ticks, cancelTicks := feeds.Subscribe(1)
	defer cancelTicks()
	insights, cancelInsights := feeds.SubscribeInsights(16)
	defer cancelInsights()
	executions, cancelExecutions := feeds.SubscribeExecutions(16)
	defer cancelExecutions()

	for {
		select {
		case <-ctx.Done():
			return nil
		case result, ok := <-ticks:
			if !ok {
				return nil
			}
			if result.Seq%uint64(every) == 0 {
				r.ReportTick(ctx, result)
			}
		case insight, ok := <-insights:
			if !ok {
				return nil
			}
			r.ReportInsight(ctx, insight)
		case exec, ok := <-executions:
			if !ok {
				return nil
			}
			r.ReportExecution(ctx, exec)
		}
	}
}
