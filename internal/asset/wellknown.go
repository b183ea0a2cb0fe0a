package asset

// Well-known assets.
var (
	USD = NewAsset("USD", "US Dollar", KindFiat, 2)
	EUR = NewAsset("EUR", "Euro", KindFiat, 2)
	GBP = NewAsset("GBP", "Pound Sterling", KindFiat, 2)
	JPY = NewAsset("JPY", "Japanese Yen", KindFiat, 0)
	AUD = NewAsset("AUD", "Australian Dollar", KindFiat, 2)
	CHF = NewAsset("CHF", "Swiss Franc", KindFiat, 2)
	CAD = NewAsset("CAD", "Canadian Dollar", KindFiat, 2)

	XAU = NewAsset("XAU", "Gold (troy ounce)", KindMetal, 2)
	XAG = NewAsset("XAG", "Silver (troy ounce)", KindMetal, 3)

	BTC = NewAsset("BTC", "Bitcoin", KindCrypto, 8)
	ETH = NewAsset("ETH", "Ether", KindCrypto, 18)
)

// DefaultRegistry returns a registry pre-populated with the well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{USD, EUR, GBP, JPY, AUD, CHF, CAD, XAU, XAG, BTC, ETH} {
		r.Register(a)
	}
	return r
}
