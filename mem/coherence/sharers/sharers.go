// Package sharers provides a growable bitset of client ids.
package sharers

import (
	"math/bits"
)

// Set records which clients hold a copy of a line. The zero value is an
// empty set.
type Set struct {
	words []uint64
}

// Add puts the id into the set, growing the set when needed.
func (s *Set) Add(id int) {
	w := id / 64
	for len(s.words) <= w {
		s.words = append(s.words, 0)
	}

	s.words[w] |= 1 << uint(id%64)
}

// Remove takes the id out of the set.
func (s *Set) Remove(id int) {
	w := id / 64
	if w >= len(s.words) {
		return
	}

	s.words[w] &^= 1 << uint(id%64)
}

// Has tells if the id is in the set.
func (s *Set) Has(id int) bool {
	w := id / 64
	if id < 0 || w >= len(s.words) {
		return false
	}

	return s.words[w]&(1<<uint(id%64)) != 0
}

// Count returns the number of ids in the set.
func (s *Set) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}

	return n
}

// IsEmpty tells if no id is in the set.
func (s *Set) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}

	return true
}

// Clear removes all the ids. The storage is kept.
func (s *Set) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// ForEach calls f on every id, in increasing order.
func (s *Set) ForEach(f func(id int)) {
	for i, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			f(i*64 + b)
			w &^= 1 << uint(b)
		}
	}
}

// IDs returns the ids in increasing order.
func (s *Set) IDs() []int {
	ids := make([]int, 0, s.Count())
	s.ForEach(func(id int) { ids = append(ids, id) })

	return ids
}
