package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbsim/business/market/domain"
)

// MarketService advances every (venue, instrument) quote once per tick and
// publishes the result as a new snapshot.
type MarketService struct {
	catalog   *Catalog
	simulator *Simulator
	store     *Store
	seq       atomic.Uint64
	now       func() time.Time

	tracer trace.Tracer
}

// NewMarketService opens a quote for every pair and publishes it as snapshot 0.
func NewMarketService(ctx context.Context, catalog *Catalog, simulator *Simulator, store *Store) *MarketService {
	s := &MarketService{
		catalog:   catalog,
		simulator: simulator,
		store:     store,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}

	quotes := make([]domain.Quote, 0, catalog.Size())
	for _, inst := range catalog.instruments {
		for _, venue := range catalog.venues {
			quotes = append(quotes, simulator.Open(ctx, venue, inst))
		}
	}
	store.Publish(domain.NewSnapshot(0, s.now(), quotes))

	return s
}

// Next computes the following snapshot from the current one without
// publishing it. Quotes go into a fresh slice, so readers of the current
// snapshot never observe a partial tick. Next and Commit must have a single
// caller; a computed snapshot that is never committed is simply discarded.
func (s *MarketService) Next(ctx context.Context) *domain.Snapshot {
	ctx, span := s.tracer.Start(ctx, "market.next")
	defer span.End()

	prev := s.store.Snapshot()
	quotes := make([]domain.Quote, 0, s.catalog.Size())

	for _, inst := range s.catalog.instruments {
		for _, venue := range s.catalog.venues {
			q, ok := prev.Quote(venue.ID, inst.Symbol)
			if !ok {
				q = s.simulator.Open(ctx, venue, inst)
			} else {
				q = s.simulator.Advance(ctx, venue, inst, q)
			}
			quotes = append(quotes, q)
		}
	}

	seq := s.seq.Add(1)
	span.SetAttributes(
		attribute.Int64("market.seq", int64(seq)),
		attribute.Int("market.quotes", len(quotes)),
	)

	return domain.NewSnapshot(seq, s.now(), quotes)
}

// Commit publishes snap as the current snapshot.
func (s *MarketService) Commit(snap *domain.Snapshot) {
	s.store.Publish(snap)
}

// Catalog returns the catalog the service simulates.
func (s *MarketService) Catalog() *Catalog {
	return s.catalog
}

// Quotes returns the read side of the store.
func (s *MarketService) Quotes() QuoteReader {
	return s.store
}
