package store

import (
	"log"
)

// MSHR reserves a slot for every address with a request in flight. It is a
// fully associative Store that additionally remembers which data-array entry
// each slot is working on.
type MSHR struct {
	slots   *Store
	entryOf []int
}

// NewMSHR creates an MSHR with the given number of slots.
func NewMSHR(name string, numSlots int, blockSize uint64) *MSHR {
	if numSlots <= 0 {
		log.Panicf("%s: MSHR needs at least one slot", name)
	}

	m := &MSHR{
		slots: New(Settings{
			Name:        name,
			Size:        uint64(numSlots) * blockSize,
			Assoc:       numSlots,
			BlockSize:   blockSize,
			Replacement: LRU,
		}),
		entryOf: make([]int, numSlots),
	}

	for i := range m.entryOf {
		m.entryOf[i] = -1
	}

	return m
}

// Lookup returns the slot reserved for the address.
func (m *MSHR) Lookup(addr uint64) (int, bool) {
	e, found := m.slots.GetEntry(addr)
	if !found {
		return -1, false
	}

	return e.Index, true
}

// Reserve takes a slot for the address. It returns false if all slots are
// taken.
func (m *MSHR) Reserve(addr uint64) (int, bool) {
	e, ok := m.slots.ReserveBlockFor(addr)
	if !ok {
		return -1, false
	}

	m.entryOf[e.Index] = -1

	return e.Index, true
}

// Release frees the slot.
func (m *MSHR) Release(slot int) {
	m.slots.Invalidate(slot)
	m.entryOf[slot] = -1
}

// Associate records that the slot works on a data-array entry.
func (m *MSHR) Associate(slot, entryIdx int) {
	if m.slots.Block(slot).Free {
		log.Panicf("associating free MSHR slot %d", slot)
	}

	m.entryOf[slot] = entryIdx
}

// EntryOf returns the data-array entry associated with the slot.
func (m *MSHR) EntryOf(slot int) (int, bool) {
	idx := m.entryOf[slot]
	return idx, idx >= 0
}

// AddrOf returns the address the slot is reserved for.
func (m *MSHR) AddrOf(slot int) uint64 {
	return m.slots.AddrOf(slot)
}

// InUse returns the number of slots taken.
func (m *MSHR) InUse() int {
	return m.slots.Occupancy()
}

// Capacity returns the number of slots.
func (m *MSHR) Capacity() int {
	return m.slots.Capacity()
}

// IsFull tells if no slot is left.
func (m *MSHR) IsFull() bool {
	return m.InUse() == m.Capacity()
}
