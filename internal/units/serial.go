package units

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"
)

const serialTimeLayout = "200601021504"

// SerialGenerator produces candidate serial numbers for a product code.
// Candidates are not guaranteed unique; callers rely on the database
// unique constraint and retry on collision.
type SerialGenerator interface {
	Next(productCode string, at time.Time) (string, error)
}

type serialGenerator struct {
	counter atomic.Uint64
}

// NewSerialGenerator returns the default generator. Serials look like
// WIDGET-202603011430-047: product code, minute-resolution timestamp,
// three-digit suffix. The suffix is a counter seeded randomly at startup,
// so serials issued by one process never collide with each other unless
// more than 1000 land in the same minute; collisions with other processes
// or existing rows fall through to the unique constraint.
func NewSerialGenerator() SerialGenerator {
	g := &serialGenerator{}
	if seed, err := rand.Int(rand.Reader, big.NewInt(1000)); err == nil {
		g.counter.Store(seed.Uint64())
	}
	return g
}

func (g *serialGenerator) Next(productCode string, at time.Time) (string, error) {
	n := g.counter.Add(1) % 1000
	return fmt.Sprintf("%s-%s-%03d", productCode, at.UTC().Format(serialTimeLayout), n), nil
}
