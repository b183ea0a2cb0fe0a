package app

import (
	"sync"
	"sync/atomic"

	"github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
)

// Store holds the current snapshot and a bounded history per (venue, instrument).
// Publish has a single caller; readers never block it for longer than a history copy.
type Store struct {
	depth   int
	current atomic.Pointer[domain.Snapshot]

	mu      sync.RWMutex
	history map[domain.Key]*domain.History
}

// NewStore creates a store keeping depth points per (venue, instrument).
func NewStore(depth int) *Store {
	s := &Store{
		depth:   depth,
		history: make(map[domain.Key]*domain.History),
	}
	s.current.Store(domain.EmptySnapshot())
	return s
}

// Publish records every quote of snap in history and makes snap current.
func (s *Store) Publish(snap *domain.Snapshot) {
	s.mu.Lock()
	for _, q := range snap.Quotes() {
		h, ok := s.history[q.Key()]
		if !ok {
			h = domain.NewHistory(s.depth)
			s.history[q.Key()] = h
		}
		h.Append(domain.HistoryPoint{At: q.At, Bid: q.Bid, Ask: q.Ask})
	}
	s.mu.Unlock()

	s.current.Store(snap)
}

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot() *domain.Snapshot {
	return s.current.Load()
}

// History returns a copy of the history for venue and symbol.
func (s *Store) History(venue domain.VenueID, symbol domain.Symbol) ([]domain.HistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[domain.Key{Venue: venue, Symbol: symbol}]
	if !ok {
		return nil, apperror.New(apperror.CodeNotFound,
			apperror.WithContext("no history for "+string(venue)+" "+string(symbol)))
	}
	return h.Points(), nil
}

// Recent returns up to n most recent points for venue and symbol.
func (s *Store) Recent(venue domain.VenueID, symbol domain.Symbol, n int) []domain.HistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[domain.Key{Venue: venue, Symbol: symbol}]
	if !ok {
		return nil
	}
	return h.Last(n)
}

