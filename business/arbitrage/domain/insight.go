package domain

import (
	"time"

	marketDomain "github.com/fd1az/arbsim/business/market/domain"
)

// Severity grades an insight.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// InsightKind names the heuristic that fired.
type InsightKind string

const (
	InsightSpreadWidening   InsightKind = "SPREAD_WIDENING"
	InsightPriceDislocation InsightKind = "PRICE_DISLOCATION"
	InsightVolatilitySpike  InsightKind = "VOLATILITY_SPIKE"
	InsightArbitrageCluster InsightKind = "ARBITRAGE_CLUSTER"
)

// Insight is a qualitative anomaly notice.
type Insight struct {
	ID          string                 `json:"id"`
	Kind        InsightKind            `json:"kind"`
	Severity    Severity               `json:"severity"`
	Summary     string                 `json:"summary"`
	Instruments []marketDomain.Symbol  `json:"instruments"`
	Venues      []marketDomain.VenueID `json:"venues"`
	Confidence  float64                `json:"confidence"`
	Timestamp   time.Time              `json:"timestamp"`
}
