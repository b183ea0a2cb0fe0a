package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	bySymbol map[string]*Asset
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bySymbol: make(map[string]*Asset)}
}

// Register adds an asset. Panics on duplicates.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySymbol[a.Symbol()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.Symbol()))
	}
	r.bySymbol[a.Symbol()] = a
}

// Get looks an asset up by symbol, case-insensitively.
func (r *Registry) Get(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.bySymbol[strings.ToUpper(symbol)]
	return a, ok
}

// ParsePair splits "BASE/QUOTE" and resolves both legs.
func (r *Registry) ParsePair(symbol string) (Pair, error) {
	base, quote, ok := strings.Cut(symbol, "/")
	if !ok || base == "" || quote == "" {
		return Pair{}, fmt.Errorf("asset: %q is not a BASE/QUOTE pair", symbol)
	}

	b, ok := r.Get(base)
	if !ok {
		return Pair{}, fmt.Errorf("asset: unknown base %q in %q", base, symbol)
	}
	q, ok := r.Get(quote)
	if !ok {
		return Pair{}, fmt.Errorf("asset: unknown quote %q in %q", quote, symbol)
	}
	if b.Equals(q) {
		return Pair{}, fmt.Errorf("asset: %q quotes an asset against itself", symbol)
	}
	return Pair{Base: b, Quote: q}, nil
}

// All returns every registered asset sorted by symbol.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.bySymbol))
	for _, a := range r.bySymbol {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].symbol < result[j].symbol })
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySymbol)
}
