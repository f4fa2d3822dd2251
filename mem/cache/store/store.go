// Package store provides the set-associative array that backs both the data
// array of a cache and its MSHR.
package store

import (
	"log"
)

// A Block is one way of a set. Blocks live in the Store's arena for the
// whole run and are recycled through ReserveBlockFor and Invalidate.
type Block struct {
	Index    int
	SetID    int
	Tag      uint64
	Free     bool
	HaveData bool
	Dirty    bool
}

type set struct {
	ways []int

	// lru holds the entries in use, least recently used first.
	lru []int
}

// Store is a fixed-capacity set-associative array with LRU ordering. The
// store knows nothing about the coherence state of the lines it holds;
// callers must check that a victim is evictable before reusing it.
type Store struct {
	settings   Settings
	offsetBits uint
	indexBits  uint
	indexMask  uint64

	entries   []Block
	sets      []set
	occupancy int
}

// New creates a Store. It panics if the settings are not valid.
func New(settings Settings) *Store {
	if err := settings.Validate(); err != nil {
		log.Panic(err)
	}

	numSets := settings.NumSets()
	s := &Store{
		settings:   settings,
		offsetBits: log2(settings.BlockSize),
		indexBits:  log2(uint64(numSets)),
		indexMask:  uint64(numSets) - 1,
		entries:    make([]Block, numSets*settings.Assoc),
		sets:       make([]set, numSets),
	}

	for i := 0; i < numSets; i++ {
		s.sets[i].ways = make([]int, settings.Assoc)
		s.sets[i].lru = make([]int, 0, settings.Assoc)

		for j := 0; j < settings.Assoc; j++ {
			idx := i*settings.Assoc + j
			s.entries[idx] = Block{Index: idx, SetID: i, Free: true}
			s.sets[i].ways[j] = idx
		}
	}

	return s
}

// Settings returns the settings the store was built with.
func (s *Store) Settings() Settings {
	return s.settings
}

// Capacity returns the total number of entries.
func (s *Store) Capacity() int {
	return len(s.entries)
}

// Occupancy returns the number of entries in use.
func (s *Store) Occupancy() int {
	return s.occupancy
}

// BlockAddr clears the offset bits of the address.
func (s *Store) BlockAddr(addr uint64) uint64 {
	return addr >> s.offsetBits << s.offsetBits
}

func (s *Store) setID(addr uint64) int {
	return int((addr >> s.offsetBits) & s.indexMask)
}

func (s *Store) tag(addr uint64) uint64 {
	return addr >> (s.offsetBits + s.indexBits)
}

// AddrOf rebuilds the block address held by an entry.
func (s *Store) AddrOf(idx int) uint64 {
	e := &s.entries[idx]

	return e.Tag<<(s.offsetBits+s.indexBits) |
		uint64(e.SetID)<<s.offsetBits
}

// Block returns the entry at the arena index.
func (s *Store) Block(idx int) *Block {
	return &s.entries[idx]
}

// HasMatch tells if an entry in use holds the address.
func (s *Store) HasMatch(addr uint64) bool {
	_, found := s.GetEntry(addr)
	return found
}

// GetEntry returns the entry in use that holds the address.
func (s *Store) GetEntry(addr uint64) (*Block, bool) {
	tag := s.tag(addr)
	for _, idx := range s.sets[s.setID(addr)].lru {
		if s.entries[idx].Tag == tag {
			return &s.entries[idx], true
		}
	}

	return nil, false
}

// ReserveBlockFor allocates a free entry in the set of the address and marks
// it most recently used. It returns false if the set is full.
func (s *Store) ReserveBlockFor(addr uint64) (*Block, bool) {
	if s.HasMatch(addr) {
		log.Panicf("%s: address 0x%x is already populated",
			s.settings.Name, addr)
	}

	st := &s.sets[s.setID(addr)]
	for _, idx := range st.ways {
		e := &s.entries[idx]
		if !e.Free {
			continue
		}

		e.Free = false
		e.Tag = s.tag(addr)
		e.HaveData = false
		e.Dirty = false
		st.lru = append(st.lru, idx)
		s.occupancy++

		return e, true
	}

	return nil, false
}

// GetReplacementEntry returns the least recently used entry of the set of
// the address without removing it. It returns false if the set has no entry
// in use.
func (s *Store) GetReplacementEntry(addr uint64) (*Block, bool) {
	st := &s.sets[s.setID(addr)]
	if len(st.lru) == 0 {
		return nil, false
	}

	return &s.entries[st.lru[0]], true
}

// Invalidate frees the entry.
func (s *Store) Invalidate(idx int) {
	e := &s.entries[idx]
	if e.Free {
		log.Panicf("%s: double free of entry %d", s.settings.Name, idx)
	}

	st := &s.sets[e.SetID]
	st.lru = removeIndex(st.lru, idx)

	e.Free = true
	e.HaveData = false
	e.Dirty = false
	s.occupancy--
}

// UpdateLRU marks the entry holding the address most recently used.
func (s *Store) UpdateLRU(addr uint64) {
	e, found := s.GetEntry(addr)
	if !found {
		log.Panicf("%s: update LRU of absent address 0x%x",
			s.settings.Name, addr)
	}

	st := &s.sets[e.SetID]
	st.lru = append(removeIndex(st.lru, e.Index), e.Index)
}

// ForEachInUse visits all the entries in use, set by set, in LRU order.
func (s *Store) ForEachInUse(f func(e *Block)) {
	for i := range s.sets {
		for _, idx := range s.sets[i].lru {
			f(&s.entries[idx])
		}
	}
}

func removeIndex(list []int, idx int) []int {
	for i, v := range list {
		if v == idx {
			return append(list[:i], list[i+1:]...)
		}
	}

	return list
}
