// Package transfer holds pending transfers between request and resolution.
package transfer

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// DefaultAlphabet is Crockford base32: no I, L, O or U.
const DefaultAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	DefaultIDWidth     = 6
	DefaultMaxAttempts = 16
)

// IDAllocator draws random fixed-width transfer ids.
type IDAllocator struct {
	alphabet    string
	width       int
	maxAttempts int
	random      func(n int) (int, error)
}

// AllocatorOption customises an IDAllocator.
type AllocatorOption func(*IDAllocator)

// WithWidth sets the id length.
func WithWidth(width int) AllocatorOption {
	return func(a *IDAllocator) {
		if width > 0 {
			a.width = width
		}
	}
}

// WithMaxAttempts bounds collision retries per allocation.
func WithMaxAttempts(n int) AllocatorOption {
	return func(a *IDAllocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithAlphabet replaces the id alphabet. Letters are upper-cased to match
// NormalizeID.
func WithAlphabet(alphabet string) AllocatorOption {
	return func(a *IDAllocator) {
		alphabet = strings.ToUpper(alphabet)
		if len(alphabet) > 1 {
			a.alphabet = alphabet
		}
	}
}

func withRandom(fn func(n int) (int, error)) AllocatorOption {
	return func(a *IDAllocator) {
		a.random = fn
	}
}

// NewIDAllocator returns an allocator with Crockford ids of DefaultIDWidth.
func NewIDAllocator(opts ...AllocatorOption) *IDAllocator {
	a := &IDAllocator{
		alphabet:    DefaultAlphabet,
		width:       DefaultIDWidth,
		maxAttempts: DefaultMaxAttempts,
		random:      cryptoIntn,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// MaxAttempts returns the retry bound.
func (a *IDAllocator) MaxAttempts() int {
	return a.maxAttempts
}

// Next draws one candidate id.
func (a *IDAllocator) Next() (string, error) {
	var b strings.Builder
	b.Grow(a.width)

	for i := 0; i < a.width; i++ {
		idx, err := a.random(len(a.alphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(a.alphabet[idx])
	}

	return b.String(), nil
}

// NormalizeID canonicalises user-typed ids.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func cryptoIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
