// Package app contains application services and port definitions for the market context.
package app

import (
	"fmt"
	"time"

	"github.com/fd1az/arbsim/business/market/domain"
	"github.com/fd1az/arbsim/internal/apperror"
	"github.com/fd1az/arbsim/internal/asset"
	"github.com/fd1az/arbsim/internal/config"
)

// Catalog is the read-only venue and instrument catalog.
type Catalog struct {
	venues      []domain.Venue
	instruments []domain.Instrument
	venueIdx    map[domain.VenueID]int
	instIdx     map[domain.Symbol]int
}

// NewCatalog validates and indexes the given entries. A malformed catalog is
// a CONFIGURATION_ERROR.
func NewCatalog(venues []domain.Venue, instruments []domain.Instrument) (*Catalog, error) {
	if len(venues) < 2 {
		return nil, apperror.Configuration("catalog needs at least two venues")
	}
	if len(instruments) == 0 {
		return nil, apperror.Configuration("catalog needs at least one instrument")
	}

	c := &Catalog{
		venues:      append([]domain.Venue(nil), venues...),
		instruments: append([]domain.Instrument(nil), instruments...),
		venueIdx:    make(map[domain.VenueID]int, len(venues)),
		instIdx:     make(map[domain.Symbol]int, len(instruments)),
	}

	for i, v := range venues {
		if v.ID == "" {
			return nil, apperror.Configuration(fmt.Sprintf("venue %d has no id", i))
		}
		if _, dup := c.venueIdx[v.ID]; dup {
			return nil, apperror.Configuration(fmt.Sprintf("duplicate venue %q", v.ID))
		}
		c.venueIdx[v.ID] = i
	}

	for i, in := range instruments {
		if in.Symbol == "" {
			return nil, apperror.Configuration(fmt.Sprintf("instrument %d has no symbol", i))
		}
		if _, dup := c.instIdx[in.Symbol]; dup {
			return nil, apperror.Configuration(fmt.Sprintf("duplicate instrument %q", in.Symbol))
		}
		if in.BasePrice <= 0 || in.VolatilityIndex < 0 || in.SpreadBps < 0 {
			return nil, apperror.Configuration(fmt.Sprintf("instrument %q has invalid pricing parameters", in.Symbol))
		}
		if in.MinVolume <= 0 || in.MaxVolume < in.MinVolume {
			return nil, apperror.Configuration(fmt.Sprintf("instrument %q has invalid volume bounds", in.Symbol))
		}
		c.instIdx[in.Symbol] = i
	}

	return c, nil
}

// LoadCatalog builds the catalog from configuration, resolving each symbol
// against the asset registry.
func LoadCatalog(cfg config.MarketConfig, reg *asset.Registry) (*Catalog, error) {
	venues := make([]domain.Venue, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		venues = append(venues, domain.Venue{
			ID:      domain.VenueID(v.ID),
			Name:    v.Name,
			Latency: time.Duration(v.LatencyMs) * time.Millisecond,
		})
	}

	instruments := make([]domain.Instrument, 0, len(cfg.Instruments))
	for _, in := range cfg.Instruments {
		pair, err := reg.ParsePair(in.Symbol)
		if err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext(fmt.Sprintf("instrument %q", in.Symbol)), apperror.WithCause(err))
		}
		instruments = append(instruments, domain.Instrument{
			Symbol:          domain.Symbol(pair.String()),
			Pair:            pair,
			BasePrice:       in.BasePrice,
			VolatilityIndex: in.VolatilityIndex,
			SpreadBps:       in.SpreadBps,
			MinVolume:       in.MinVolume,
			MaxVolume:       in.MaxVolume,
		})
	}

	return NewCatalog(venues, instruments)
}

// Venues returns the venues in catalog order.
func (c *Catalog) Venues() []domain.Venue {
	return append([]domain.Venue(nil), c.venues...)
}

// Instruments returns the instruments in catalog order.
func (c *Catalog) Instruments() []domain.Instrument {
	return append([]domain.Instrument(nil), c.instruments...)
}

// Venue looks a venue up by id.
func (c *Catalog) Venue(id domain.VenueID) (domain.Venue, error) {
	i, ok := c.venueIdx[id]
	if !ok {
		return domain.Venue{}, apperror.New(apperror.CodeUnknownVenue, apperror.WithContext(string(id)))
	}
	return c.venues[i], nil
}

// Instrument looks an instrument up by symbol.
func (c *Catalog) Instrument(symbol domain.Symbol) (domain.Instrument, error) {
	i, ok := c.instIdx[symbol]
	if !ok {
		return domain.Instrument{}, apperror.New(apperror.CodeUnknownInstrument, apperror.WithContext(string(symbol)))
	}
	return c.instruments[i], nil
}

// Size returns the number of (venue, instrument) combinations.
func (c *Catalog) Size() int {
	return len(c.venues) * len(c.instruments)
}
