package domain

import "github.com/shopspring/decimal"

// CrossSpread is the price gap between buying at one venue's ask and selling
// at another venue's bid.
type CrossSpread struct {
	BuyAsk      decimal.Decimal
	SellBid     decimal.Decimal
	Absolute    decimal.Decimal // SellBid - BuyAsk
	BasisPoints decimal.Decimal // Absolute / BuyAsk * 10000
}

// CalculateCrossSpread computes the spread in exact decimal arithmetic.
func CalculateCrossSpread(buyAsk, sellBid decimal.Decimal) CrossSpread {
	absolute := sellBid.Sub(buyAsk)
	bps := decimal.Zero
	if !buyAsk.IsZero() {
		bps = absolute.Div(buyAsk).Mul(decimal.NewFromInt(10000))
	}

	return CrossSpread{
		BuyAsk:      buyAsk,
		SellBid:     sellBid,
		Absolute:    absolute,
		BasisPoints: bps,
	}
}

// IsProfitable reports whether selling beats buying.
func (s CrossSpread) IsProfitable() bool {
	return s.Absolute.IsPositive()
}

// MarginPct is the margin in percent.
func (s CrossSpread) MarginPct() decimal.Decimal {
	return s.BasisPoints.Div(decimal.NewFromInt(100))
}
