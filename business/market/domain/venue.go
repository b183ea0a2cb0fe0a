// Package domain contains the core domain types for the market simulation context.
package domain

import "time"

// VenueID identifies a simulated trading venue.
type VenueID string

func (id VenueID) String() string {
	return string(id)
}

// Venue is a simulated trading counterparty quoting its own bid/ask.
type Venue struct {
	ID      VenueID
	Name    string
	Latency time.Duration
}
