// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/arbsim/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbsim/business/market/domain"
)

// TickResult is what one tick publishes to subscribers.
type TickResult struct {
	Seq           uint64
	At            time.Time
	Duration      time.Duration
	Quotes        *marketDomain.Snapshot
	Opportunities []domain.Opportunity
}

// Reporter defines the interface for reporting engine activity.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportTick receives the ranked opportunities of a tick.
	ReportTick(ctx context.Context, result TickResult)

	// ReportExecution receives every executed trade pair.
	ReportExecution(ctx context.Context, exec domain.Execution)

	// ReportInsight receives every emitted insight.
	ReportInsight(ctx context.Context, insight domain.Insight)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// VenueDirectory resolves venue metadata.
type VenueDirectory interface {
	Venue(id marketDomain.VenueID) (marketDomain.Venue, error)
}

// OpportunitySource exposes the current active set.
type OpportunitySource interface {
	Active() []domain.Opportunity
}
