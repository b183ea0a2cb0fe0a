package domain

import "github.com/fd1az/arbsim/internal/apperror"

// ErrStaleOpportunity matches, via errors.Is, any execution against an id
// that is no longer active.
var ErrStaleOpportunity = apperror.New(apperror.CodeStaleOpportunity)

// NewStaleOpportunityError builds the error returned for id.
func NewStaleOpportunityError(id OpportunityID) error {
	return apperror.New(apperror.CodeStaleOpportunity, apperror.WithContext(string(id)))
}
