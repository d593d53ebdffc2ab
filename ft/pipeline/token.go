package pipeline

import (
	"math/rand/v2"
	"sync"
)

// TokenGenerator produces unique 64-bit PitTokens. math/rand/v2's
// top-level seed source is drawn from the OS CSPRNG, so seeding a local
// rand.Rand off of it gives every Pipeline instance an independent,
// unpredictable stream while still allowing deterministic seeds in
// tests.
type TokenGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTokenGenerator returns a TokenGenerator seeded from the process-wide
// cryptographically-seeded source.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededTokenGenerator returns a TokenGenerator with a fixed seed, for
// reproducible tests.
func NewSeededTokenGenerator(seed1, seed2 uint64) *TokenGenerator {
	return &TokenGenerator{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Next returns a fresh, uniformly random 64-bit token. Safe for
// concurrent use by worker threads and the dispatcher thread alike.
func (g *TokenGenerator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Uint64()
}
