package pricing

import (
	"crypto/rand"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	numberSuffix   = 8
	// Largest multiple of len(numberAlphabet) below 256; bytes at or above it
	// are discarded so every symbol is equally likely.
	unbiasedLimit = 252

	localAttempts = 16
)

var errNumbersExhausted = errors.New("could not draw an unused order number")

// NumberSource produces candidate order numbers.
type NumberSource interface {
	Next(now time.Time) (string, error)
}

// NumberGenerator draws ORD-YYMMDD-XXXXXXXX numbers from crypto/rand and
// remembers what it has issued in a bloom filter, so this process never hands
// out the same number twice. Cross-process uniqueness is left to the store.
type NumberGenerator struct {
	mu     sync.Mutex
	issued *bloom.BloomFilter
	random io.Reader
}

// NewNumberGenerator creates a generator sized for expected issued numbers.
func NewNumberGenerator(expected uint) *NumberGenerator {
	if expected == 0 {
		expected = 1_000_000
	}
	return &NumberGenerator{
		issued: bloom.NewWithEstimates(expected, 1e-9),
		random: rand.Reader,
	}
}

// Next returns a number not previously issued by this generator. A bloom
// false positive only costs another draw.
func (g *NumberGenerator) Next(now time.Time) (string, error) {
	for i := 0; i < localAttempts; i++ {
		candidate, err := g.draw(now)
		if err != nil {
			return "", err
		}

		g.mu.Lock()
		seen := g.issued.TestAndAddString(candidate)
		g.mu.Unlock()

		if !seen {
			return candidate, nil
		}
	}
	return "", errNumbersExhausted
}

func (g *NumberGenerator) draw(now time.Time) (string, error) {
	suffix := make([]byte, 0, numberSuffix)
	buf := make([]byte, numberSuffix*2)
	for len(suffix) < numberSuffix {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= unbiasedLimit {
				continue
			}
			suffix = append(suffix, numberAlphabet[int(b)%len(numberAlphabet)])
			if len(suffix) == numberSuffix {
				break
			}
		}
	}
	return "ORD-" + now.UTC().Format("060102") + "-" + string(suffix), nil
}
