package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

const (
	countryPrefix = "+91"
	suffixMin     = 10000000
	suffixMax     = 99999999

	defaultCodeLength = 6
	minCodeLength     = 4
	maxCodeLength     = 8
)

// mobilePrefixes mirrors the Indian national numbering plan: mobile
// numbers start with 7, 8 or 9.
var mobilePrefixes = []string{
	"70", "71", "72", "73", "74", "75", "76", "77", "78", "79",
	"80", "81", "82", "83", "84", "85", "86", "87", "88", "89",
	"90", "91", "92", "93", "94", "95", "96", "97", "98", "99",
}

// Generator produces synthetic phone numbers and verification codes.
// The used set only filters repeats within this process; the database
// unique index on phone numbers is the authoritative guard, and callers
// retry generation when an insert hits it.
type Generator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	used map[string]struct{}
}

// New creates a generator with its own random source.
func New(seed int64) *Generator {
	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		used: make(map[string]struct{}),
	}
}

// Number returns a synthetic Indian mobile number not yet issued by
// this generator instance. Redraws on collision.
func (g *Generator) Number() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		prefix := mobilePrefixes[g.rng.Intn(len(mobilePrefixes))]
		suffix := suffixMin + g.rng.Intn(suffixMax-suffixMin+1)
		number := fmt.Sprintf("%s%s%d", countryPrefix, prefix, suffix)
		if _, taken := g.used[number]; taken {
			continue
		}
		g.used[number] = struct{}{}
		return number
	}
}

// Code returns a numeric simulation code, not a real OTP. Lengths
// outside [4,8] snap to the default of 6.
func (g *Generator) Code(length int) string {
	if length < minCodeLength || length > maxCodeLength {
		length = defaultCodeLength
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(byte('0' + g.rng.Intn(10)))
	}
	return builder.String()
}

// Pair returns a number and a code of the given length together.
func (g *Generator) Pair(codeLength int) (string, string) {
	return g.Number(), g.Code(codeLength)
}

// Forget releases a number back to the pool, for when the store rejects
// it and the caller moves on without persisting an allocation.
func (g *Generator) Forget(number string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.used, number)
}
