package domain

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the randomness behind simulated prices, confidence
// scores and slippage. Tests pass a seeded source to make ticks reproducible.
type RandomSource interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// NormFloat64 returns a standard normal value.
	NormFloat64() float64
}

type entropySource struct{}

func (entropySource) Float64() float64     { return rand.Float64() }
func (entropySource) NormFloat64() float64 { return rand.NormFloat64() }

// NewEntropySource returns a source backed by the runtime's randomly seeded
// generator. Safe for concurrent use.
func NewEntropySource() RandomSource {
	return entropySource{}
}

type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) NormFloat64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.NormFloat64()
}

// NewSeededSource returns a deterministic source safe for concurrent use.
// Draw order across goroutines is not deterministic.
func NewSeededSource(seed uint64) RandomSource {
	return &lockedSource{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Uniform draws from [lo, hi).
func Uniform(r RandomSource, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
