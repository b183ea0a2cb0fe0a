package domain

import "time"

// Snapshot is the immutable set of quotes published by one tick.
// Readers may hold a snapshot indefinitely; the next tick publishes a new one.
type Snapshot struct {
	Seq uint64
	At  time.Time

	quotes []Quote
	index  map[Key]int
}

// NewSnapshot takes ownership of quotes. Order is preserved.
func NewSnapshot(seq uint64, at time.Time, quotes []Quote) *Snapshot {
	index := make(map[Key]int, len(quotes))
	for i, q := range quotes {
		index[q.Key()] = i
	}
	return &Snapshot{Seq: seq, At: at, quotes: quotes, index: index}
}

// EmptySnapshot is the zero state before any tick.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(0, time.Time{}, nil)
}

// Quote returns the quote for venue and symbol.
func (s *Snapshot) Quote(venue VenueID, symbol Symbol) (Quote, bool) {
	i, ok := s.index[Key{Venue: venue, Symbol: symbol}]
	if !ok {
		return Quote{}, false
	}
	return s.quotes[i], true
}

// BySymbol returns every venue's quote for symbol, in publication order.
func (s *Snapshot) BySymbol(symbol Symbol) []Quote {
	var out []Quote
	for _, q := range s.quotes {
		if q.Symbol == symbol {
			out = append(out, q)
		}
	}
	return out
}

// Quotes returns a copy of all quotes.
func (s *Snapshot) Quotes() []Quote {
	out := make([]Quote, len(s.quotes))
	copy(out, s.quotes)
	return out
}

// Len returns the number of quotes.
func (s *Snapshot) Len() int {
	return len(s.quotes)
}
