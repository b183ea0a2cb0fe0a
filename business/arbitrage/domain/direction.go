package domain

import marketDomain "github.com/fd1az/arbsim/business/market/domain"

// Direction is the buy-venue to sell-venue route of an opportunity.
// (a, b) and (b, a) are distinct directions.
type Direction struct {
	Buy  marketDomain.VenueID `json:"buy"`
	Sell marketDomain.VenueID `json:"sell"`
}

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	return "buy " + string(d.Buy) + " → sell " + string(d.Sell)
}
