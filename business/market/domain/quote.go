package domain

import (
	"math"
	"time"
)

// Key addresses one (venue, instrument) combination.
type Key struct {
	Venue  VenueID
	Symbol Symbol
}

func (k Key) String() string {
	return string(k.Venue) + ":" + string(k.Symbol)
}

// Quote is the bid/ask of one venue for one instrument.
// A published quote always satisfies Bid < Ask.
type Quote struct {
	Venue  VenueID   `json:"venue"`
	Symbol Symbol    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	At     time.Time `json:"at"`
}

// Key returns the quote's address.
func (q Quote) Key() Key {
	return Key{Venue: q.Venue, Symbol: q.Symbol}
}

// Mid returns the mid price.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread returns Ask - Bid.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// SpreadBps returns the spread relative to the mid, in basis points.
func (q Quote) SpreadBps() float64 {
	mid := q.Mid()
	if mid == 0 {
		return 0
	}
	return q.Spread() / mid * 10_000
}

// Valid reports whether the quote is finite, positive and uncrossed.
func (q Quote) Valid() bool {
	if math.IsNaN(q.Bid) || math.IsNaN(q.Ask) || math.IsInf(q.Bid, 0) || math.IsInf(q.Ask, 0) {
		return false
	}
	return q.Bid > 0 && q.Bid < q.Ask
}
