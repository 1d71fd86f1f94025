// Package random supplies the uniform integer draws consumed by the lottery
// and attendance engines. Every call to Intn is an independent draw; nothing
// is cached between calls.
package random

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/holiman/uint256"
	"lukechampine.com/blake3"
)

// ErrEmptyRange is returned when a draw is requested over an empty range.
var ErrEmptyRange = errors.New("random: range must be non-empty")

// Provider returns uniformly distributed integers in [0, n).
type Provider interface {
	Intn(n uint64) (uint64, error)
}

// reduce maps a uniformly random 256-bit word onto [0, n). ok is false when
// the word falls into the biased tail and must be redrawn.
func reduce(word *uint256.Int, n uint64) (uint64, bool) {
	bound := uint256.NewInt(n)
	max := new(uint256.Int).SetAllOne()
	// tail = 2^256 mod n
	tail := new(uint256.Int).Mod(max, bound)
	tail.AddUint64(tail, 1)
	tail.Mod(tail, bound)
	limit := new(uint256.Int).Sub(max, tail)
	if word.Gt(limit) {
		return 0, false
	}
	return new(uint256.Int).Mod(word, bound).Uint64(), true
}

// CryptoProvider draws from the operating system CSPRNG.
type CryptoProvider struct {
	reader io.Reader
}

// NewCryptoProvider returns a provider backed by crypto/rand.
func NewCryptoProvider() *CryptoProvider {
	return &CryptoProvider{reader: rand.Reader}
}

// Intn implements Provider.
func (p *CryptoProvider) Intn(n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrEmptyRange
	}
	reader := rand.Reader
	if p != nil && p.reader != nil {
		reader = p.reader
	}
	var buf [32]byte
	for {
		if _, err := io.ReadFull(reader, buf[:]); err != nil {
			return 0, fmt.Errorf("random: read entropy: %w", err)
		}
		word := new(uint256.Int).SetBytes32(buf[:])
		if v, ok := reduce(word, n); ok {
			return v, nil
		}
	}
}

// Seeded is a deterministic provider deriving each word as
// blake3(seed || counter). It is safe for concurrent use and lets a draw
// sequence be replayed from its seed.
type Seeded struct {
	mu      sync.Mutex
	seed    []byte
	counter uint64
}

// NewSeeded constructs a deterministic provider from seed.
func NewSeeded(seed []byte) *Seeded {
	return &Seeded{seed: append([]byte(nil), seed...)}
}

// Draws reports how many 256-bit words have been consumed.
func (s *Seeded) Draws() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Intn implements Provider.
func (s *Seeded) Intn(n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrEmptyRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	input := make([]byte, len(s.seed)+8)
	copy(input, s.seed)
	for {
		binary.BigEndian.PutUint64(input[len(s.seed):], s.counter)
		s.counter++
		sum := blake3.Sum256(input)
		word := new(uint256.Int).SetBytes32(sum[:])
		if v, ok := reduce(word, n); ok {
			return v, nil
		}
	}
}

// Sequence replays a fixed list of values, reduced modulo n, cycling when
// exhausted. It records every requested range for inspection in tests.
type Sequence struct {
	mu       sync.Mutex
	values   []uint64
	next     int
	Requests []uint64
}

// NewSequence constructs a replaying provider.
func NewSequence(values ...uint64) *Sequence {
	return &Sequence{values: append([]uint64(nil), values...)}
}

// Intn implements Provider.
func (s *Sequence) Intn(n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrEmptyRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, n)
	if len(s.values) == 0 {
		return 0, nil
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n, nil
}

// Calls reports how many draws have been requested.
func (s *Sequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
