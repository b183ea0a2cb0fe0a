// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/arbsim/business/market/domain"
)

// OpportunityID is globally unique and time ordered; ids are never reused.
type OpportunityID string

// NewID returns a new UUIDv7 string. Ids generated in one process sort in
// generation order.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseOpportunityID validates s.
func ParseOpportunityID(s string) (OpportunityID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return OpportunityID(id.String()), nil
}

// Opportunity is a detected cross-venue price discrepancy. It is never
// mutated after creation, only removed from the active set.
type Opportunity struct {
	ID                OpportunityID        `json:"id"`
	Tick              uint64               `json:"tick"`
	Symbol            marketDomain.Symbol  `json:"symbol"`
	BuyVenue          marketDomain.VenueID `json:"buy_venue"`
	SellVenue         marketDomain.VenueID `json:"sell_venue"`
	BuyPrice          float64              `json:"buy_price"`
	SellPrice         float64              `json:"sell_price"`
	MarginPct         float64              `json:"margin_pct"`
	Volume            float64              `json:"volume"`
	Risk              RiskTier             `json:"risk"`
	Confidence        float64              `json:"confidence"`
	EstimatedSlippage float64              `json:"estimated_slippage_pct"`
	CreatedAt         time.Time            `json:"created_at"`
}

// Direction returns the buy/sell route.
func (o *Opportunity) Direction() Direction {
	return Direction{Buy: o.BuyVenue, Sell: o.SellVenue}
}

// MarginBps returns the margin in basis points.
func (o *Opportunity) MarginBps() float64 {
	return o.MarginPct * 100
}

// ExpectedProfit is (sell - buy) * volume in the quote currency, before slippage.
func (o *Opportunity) ExpectedProfit() decimal.Decimal {
	return decimal.NewFromFloat(o.SellPrice).
		Sub(decimal.NewFromFloat(o.BuyPrice)).
		Mul(decimal.NewFromFloat(o.Volume))
}
