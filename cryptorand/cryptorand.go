// Package cryptorand is a math/rand source backed by crypto/rand, so room IDs
// and goal words can't be predicted from earlier ones.
package cryptorand

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// New returns a *rand.Rand that reads from crypto/rand. Like any *rand.Rand,
// it isn't safe for concurrent use.
func New() *rand.Rand {
	return rand.New(NewSource())
}

func NewSource() Source {
	return Source{}
}

type Source struct{}

func (Source) Int63() int64 {
	return int64(Source{}.Uint64() &^ (1 << 63))
}

func (Source) Uint64() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Seed is a no-op, there's nothing to seed.
func (Source) Seed(int64) {}
