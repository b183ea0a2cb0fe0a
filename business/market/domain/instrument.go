package domain

import "github.com/fd1az/arbsim/internal/asset"

// Symbol identifies a tradable instrument, e.g. "EUR/USD".
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// sigmaPerVolUnit is the per-tick standard deviation of the mid, relative to
// the base price, for a volatility index of 1.
const sigmaPerVolUnit = 0.00005

// Instrument is an immutable catalog entry.
type Instrument struct {
	Symbol          Symbol
	Pair            asset.Pair
	BasePrice       float64
	VolatilityIndex float64
	SpreadBps       float64
	MinVolume       float64
	MaxVolume       float64
}

// Sigma is the per-tick fluctuation scale of the mid price.
func (i Instrument) Sigma() float64 {
	return i.BasePrice * i.VolatilityIndex * sigmaPerVolUnit
}

// TypicalSpread is the usual absolute bid/ask spread.
func (i Instrument) TypicalSpread() float64 {
	return i.BasePrice * i.SpreadBps / 10_000
}

// FormatPrice renders a price at the instrument's display precision.
func (i Instrument) FormatPrice(v float64) string {
	return i.Pair.FormatPrice(v)
}
