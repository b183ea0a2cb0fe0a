package domain

import (
	"time"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/arbsim/business/market/domain"
)

// Side represents the side of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord is one executed leg of an opportunity.
type TradeRecord struct {
	ID            string               `json:"id"`
	OpportunityID OpportunityID        `json:"opportunity_id"`
	Symbol        marketDomain.Symbol  `json:"symbol"`
	Side          Side                 `json:"side"`
	Venue         marketDomain.VenueID `json:"venue"`
	Price         float64              `json:"price"`
	Volume        float64              `json:"volume"`
	// SlippagePct is the simulated adverse price move, in percent of Price.
	SlippagePct   float64       `json:"slippage_pct"`
	ExecutionTime time.Duration `json:"execution_time_ns"`
	Timestamp     time.Time     `json:"timestamp"`
}

// FilledPrice is Price moved against the trader by the slippage.
func (t TradeRecord) FilledPrice() decimal.Decimal {
	price := decimal.NewFromFloat(t.Price)
	slip := price.Mul(decimal.NewFromFloat(t.SlippagePct)).Div(decimal.NewFromInt(100))
	if t.Side == SideBuy {
		return price.Add(slip)
	}
	return price.Sub(slip)
}

// Notional is FilledPrice * Volume.
func (t TradeRecord) Notional() decimal.Decimal {
	return t.FilledPrice().Mul(decimal.NewFromFloat(t.Volume))
}

// Execution is the matched pair of legs produced by one execution.
type Execution struct {
	Buy  TradeRecord `json:"buy"`
	Sell TradeRecord `json:"sell"`
}

// RealizedPnL is sell notional minus buy notional, after slippage.
func (e Execution) RealizedPnL() decimal.Decimal {
	return e.Sell.Notional().Sub(e.Buy.Notional())
}
