package engine

import (
	"crypto/rand"
	"encoding/hex"
	"hash/fnv"
)

// ShuffleAlgorithm names the seed-to-permutation mapping so hand results can be
// verified by independent implementations. The deck base order is suit-major
// (spades, hearts, diamonds, clubs), rank ascending Two..Ace within each suit.
const ShuffleAlgorithm = "fnv1a32/mulberry32/fisher-yates"

// NewSeed returns a fresh random shuffle seed. The seed is revealed in the
// hand result after the hand completes.
func NewSeed() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("entropy source unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}

// seedState hashes a seed string down to the 32-bit PRNG state.
func seedState(seed string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return h.Sum32()
}

// mulberry32 is a tiny deterministic PRNG. The constants and tempering match
// the widely used reference so a revealed seed reproduces the same permutation
// in any implementation.
type mulberry32 struct {
	state uint32
}

func newMulberry32(seed string) *mulberry32 {
	return &mulberry32{state: seedState(seed)}
}

func (m *mulberry32) Uint32() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns a value in [0, 1) with 32 bits of precision.
func (m *mulberry32) Float64() float64 {
	return float64(m.Uint32()) / (1 << 32)
}

// shuffleCards permutes cards in place with a Fisher-Yates walk driven by the
// seeded PRNG.
func shuffleCards(cards []Card, rng *mulberry32) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		cards[i], cards[j] = cards[j], cards[i]
	}
}
