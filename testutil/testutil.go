package testutil

import (
	"math/rand"
	"sync"
)

// PatternModulus is the period of Pattern. It is prime so the pattern does
// not line up with power-of-two block sizes.
const PatternModulus = 251

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed)) //nolint:gosec // deterministic test data
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// FillBytes fills dst with pseudo-random bytes.
func (r *RNG) FillBytes(dst []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.rand.Read(dst)
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	b := make([]byte, n)
	r.FillBytes(b)
	return b
}

// Chunks returns num random payloads, each 1 to maxLen bytes long.
func (r *RNG) Chunks(num, maxLen int) [][]byte {
	out := make([][]byte, num)
	for i := range out {
		out[i] = r.Bytes(1 + r.Intn(maxLen))
	}
	return out
}

// Compressible returns n bytes drawn from a small alphabet, suitable for
// exercising compression codecs.
func (r *RNG) Compressible(n int) []byte {
	const alphabet = "abcdefgh"
	b := make([]byte, n)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range b {
		b[i] = alphabet[r.rand.Intn(len(alphabet))]
	}
	return b
}

// Pattern returns n bytes where byte i is i modulo PatternModulus.
func Pattern(n int) []byte {
	return PatternFrom(0, n)
}

// PatternFrom returns the n pattern bytes starting at stream offset off.
func PatternFrom(off, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((off + i) % PatternModulus)
	}
	return b
}

// IsPatternPrefix reports whether b equals Pattern(len(b)).
func IsPatternPrefix(b []byte) bool {
	for i, c := range b {
		if c != byte(i%PatternModulus) {
			return false
		}
	}
	return true
}
