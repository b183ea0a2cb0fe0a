package asset

import "github.com/shopspring/decimal"

// Pair is a base asset priced in a quote asset.
type Pair struct {
	Base  *Asset
	Quote *Asset
}

// String returns "BASE/QUOTE".
func (p Pair) String() string {
	return p.Base.Symbol() + "/" + p.Quote.Symbol()
}

// PriceScale is the number of decimals a price for this pair is displayed with.
// FX majors quote to fractional pips, JPY crosses to three places, metals and
// crypto to cents.
func (p Pair) PriceScale() int32 {
	switch {
	case p.Base.Kind() == KindCrypto || p.Base.Kind() == KindMetal:
		return 2
	case p.Quote.Symbol() == "JPY":
		return 3
	default:
		return 5
	}
}

// PipSize is the conventional minimum quoted increment.
func (p Pair) PipSize() float64 {
	switch p.PriceScale() {
	case 2:
		return 0.01
	case 3:
		return 0.01
	default:
		return 0.0001
	}
}

// FormatPrice renders v at the pair's display scale.
func (p Pair) FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(p.PriceScale())
}
