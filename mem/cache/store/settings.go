package store

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/mesisim/sim"
)

// ReplacementPolicy selects the victim when a set is full.
type ReplacementPolicy string

// LRU evicts the least recently used entry. It is the only supported policy.
const LRU ReplacementPolicy = "lru"

// Settings describes the geometry and timing of a cache array.
type Settings struct {
	Name        string            `yaml:"name"`
	Size        uint64            `yaml:"size"`
	Assoc       int               `yaml:"assoc"`
	BlockSize   uint64            `yaml:"block_size"`
	HitTime     sim.VTimeInCycle  `yaml:"hit_time"`
	LookupTime  sim.VTimeInCycle  `yaml:"lookup_time"`
	Replacement ReplacementPolicy `yaml:"replacement"`
}

// NumSets returns the number of sets.
func (s Settings) NumSets() int {
	return int(s.Size / (uint64(s.Assoc) * s.BlockSize))
}

// Validate checks that the geometry can be decomposed with power-of-two
// masks.
func (s Settings) Validate() error {
	if s.Assoc <= 0 {
		return fmt.Errorf("cache %s: associativity must be positive, got %d",
			s.Name, s.Assoc)
	}

	if s.BlockSize == 0 || !isPowerOfTwo(s.BlockSize) {
		return fmt.Errorf("cache %s: block size %d is not a power of two",
			s.Name, s.BlockSize)
	}

	lineBytes := uint64(s.Assoc) * s.BlockSize
	if s.Size == 0 || s.Size%lineBytes != 0 {
		return fmt.Errorf("cache %s: size %d is not a multiple of assoc %d "+
			"times block size %d", s.Name, s.Size, s.Assoc, s.BlockSize)
	}

	if !isPowerOfTwo(s.Size / lineBytes) {
		return fmt.Errorf("cache %s: number of sets %d is not a power of two",
			s.Name, s.Size/lineBytes)
	}

	switch s.Replacement {
	case LRU, "":
	default:
		return fmt.Errorf("cache %s: unsupported replacement policy %q",
			s.Name, s.Replacement)
	}

	return nil
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

func log2(n uint64) uint {
	return uint(bits.TrailingZeros64(n))
}
