package domain

// RiskTier is derived purely from the profit margin.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Tier thresholds, in percent.
const (
	highRiskMarginPct   = 0.1
	mediumRiskMarginPct = 0.05
)

// ClassifyRisk maps a margin (percent) to its tier: above 0.1% is HIGH,
// above 0.05% is MEDIUM, anything else LOW.
func ClassifyRisk(marginPct float64) RiskTier {
	switch {
	case marginPct > highRiskMarginPct:
		return RiskHigh
	case marginPct > mediumRiskMarginPct:
		return RiskMedium
	default:
		return RiskLow
	}
}
