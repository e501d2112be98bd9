package mind

import (
	"math/rand/v2"
	"sync"
)

// Rand is the source of every random draw the engine makes. Tests substitute
// a seeded or scripted implementation.
type Rand interface {
	Float64() float64
	// IntN returns a uniform integer in [0,n). n > 0.
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand uses the runtime's concurrency-safe global generator.
func DefaultRand() Rand { return globalRand{} }

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRand returns a deterministic, concurrency-safe generator.
func NewSeededRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// uniformInt draws an integer in [lo,hi]. hi < lo yields lo.
func uniformInt(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// uniformFloat draws a float in [lo,hi).
func uniformFloat(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
