package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/arbsim/internal/apperror"
)

// SchedulerStats counts tick outcomes since the engine was built.
type SchedulerStats struct {
	Ticks    uint64 `json:"ticks"`
	Overruns uint64 `json:"overruns"`
	Skipped  uint64 `json:"skipped"`
	Failed   uint64 `json:"failed"`
}

type schedulerCounts struct {
	ticks    atomic.Uint64
	overruns atomic.Uint64
	skipped  atomic.Uint64
	failed   atomic.Uint64
}

// SchedulerStats returns the tick outcome counters.
func (e *Engine) SchedulerStats() SchedulerStats {
	return SchedulerStats{
		Ticks:    e.counts.ticks.Load(),
		Overruns: e.counts.overruns.Load(),
		Skipped:  e.counts.skipped.Load(),
		Failed:   e.counts.failed.Load(),
	}
}

// Start launches the tick loop and the insight loop. It returns
// ENGINE_RUNNING if the engine is already started.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running.Load() {
		return apperror.New(apperror.CodeEngineRunning)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.running.Store(true)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.run(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.insights.Run(runCtx)
	}()

	e.logger.Info(ctx, "engine started",
		"tick_interval", e.config.TickInterval.String(),
		"venues", len(e.market.Catalog().Venues()),
		"instruments", len(e.market.Catalog().Instruments()),
	)
	return nil
}

// Stop halts both loops and waits for them to exit. Safe at any point: a
// tick in flight completes or is dropped as a whole. Stopping a stopped
// engine returns ENGINE_STOPPED.
func (e *Engine) Stop() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.running.Load() {
		return apperror.New(apperror.CodeEngineStopped)
	}

	e.cancel()
	e.wg.Wait()
	e.running.Store(false)

	e.logger.Info(context.Background(), "engine stopped")
	return nil
}

// Running reports whether the scheduler is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Close stops the engine if needed and ends every subscription.
func (e *Engine) Close() {
	_ = e.Stop()
	e.ticks.Close()
	e.insights.Close()
	e.executor.Close()
}

// run is the fixed-period tick loop. Ticks never queue: after a tick that
// overruns the interval, the next tick is skipped.
func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	skipNext := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if skipNext {
			skipNext = false
			e.counts.skipped.Add(1)
			e.metrics.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "overrun")))
			e.logger.Warn(ctx, "tick skipped after overrun")
			continue
		}

		start := e.clock()
		result, err := e.Tick(ctx)
		elapsed := e.clock().Sub(start)

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if apperror.GetCode(err) == apperror.CodeCircuitOpen {
				e.logger.Warn(ctx, "tick skipped, circuit open")
			} else {
				args := append([]any{"elapsed", elapsed.String()}, apperror.Wrap(err, apperror.CodeTickFailed, "").LogArgs()...)
				e.logger.Error(ctx, "tick dropped", args...)
			}
			continue
		}

		if elapsed > e.config.TickInterval {
			skipNext = true
			e.counts.overruns.Add(1)
			e.metrics.overruns.Add(ctx, 1)
			e.logger.Warn(ctx, "tick overran its interval",
				"code", apperror.CodeTickOverrun,
				"seq", result.Seq,
				"elapsed", elapsed.String(),
				"interval", e.config.TickInterval.String(),
			)
		}
	}
}
