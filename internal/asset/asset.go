// Package asset models the currencies, metals and crypto assets instruments are quoted in.
// The symbol is the identity; an asset is registered once per process.
package asset

import "strings"

// Kind classifies an asset.
type Kind string

const (
	KindFiat   Kind = "fiat"
	KindMetal  Kind = "metal"
	KindCrypto Kind = "crypto"
)

// Asset is an immutable reference entity.
type Asset struct {
	symbol   string
	name     string
	kind     Kind
	decimals uint8
}

// NewAsset creates an Asset. Symbols are upper-cased.
func NewAsset(symbol, name string, kind Kind, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 18 {
		panic("asset: suspicious decimals (>18)")
	}
	return &Asset{
		symbol:   strings.ToUpper(symbol),
		name:     name,
		kind:     kind,
		decimals: decimals,
	}
}

// Symbol returns the ticker (e.g. "EUR", "XAU").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the display name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Kind returns the asset class.
func (a *Asset) Kind() Kind {
	return a.kind
}

// Decimals returns the minor unit precision.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

func (a *Asset) String() string {
	return a.symbol
}

// Equals compares by symbol.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.symbol == other.symbol
}
