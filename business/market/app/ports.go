package app

import "github.com/fd1az/arbsim/business/market/domain"

// QuoteReader is the read side of the quote store.
type QuoteReader interface {
	// Snapshot returns the latest published snapshot. Never nil.
	Snapshot() *domain.Snapshot

	// History returns the recorded quotes for one venue and instrument, oldest first.
	History(venue domain.VenueID, symbol domain.Symbol) ([]domain.HistoryPoint, error)

	// Recent returns up to n of the newest points, oldest first.
	Recent(venue domain.VenueID, symbol domain.Symbol, n int) []domain.HistoryPoint
}

var _ QuoteReader = (*Store)(nil)
