package store

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	var (
		s *Store
	)

	// 4 sets, 2 ways, 64B blocks. Set index comes from bits 6 and 7.
	BeforeEach(func() {
		s = New(Settings{
			Name:      "L1",
			Size:      512,
			Assoc:     2,
			BlockSize: 64,
		})
	})

	countInUse := func() int {
		n := 0
		for i := 0; i < s.Capacity(); i++ {
			if !s.Block(i).Free {
				n++
			}
		}

		return n
	}

	It("should start empty", func() {
		Expect(s.Capacity()).To(Equal(8))
		Expect(s.Occupancy()).To(Equal(0))
		Expect(s.HasMatch(0x40)).To(BeFalse())
	})

	It("should reserve and find a block", func() {
		e, ok := s.ReserveBlockFor(0x1040)

		Expect(ok).To(BeTrue())
		Expect(e.Free).To(BeFalse())
		Expect(e.SetID).To(Equal(1))
		Expect(s.Occupancy()).To(Equal(1))

		found, ok := s.GetEntry(0x1040)
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(e))
		Expect(s.AddrOf(e.Index)).To(Equal(uint64(0x1040)))
	})

	It("should ignore the offset bits", func() {
		s.ReserveBlockFor(0x1040)

		Expect(s.HasMatch(0x107f)).To(BeTrue())
		Expect(s.BlockAddr(0x107f)).To(Equal(uint64(0x1040)))
	})

	It("should panic when populating an address twice", func() {
		s.ReserveBlockFor(0x40)

		Expect(func() { s.ReserveBlockFor(0x40) }).To(Panic())
	})

	It("should fail to reserve when the set is full", func() {
		_, ok1 := s.ReserveBlockFor(0x040)
		_, ok2 := s.ReserveBlockFor(0x140)
		_, ok3 := s.ReserveBlockFor(0x240)

		Expect(ok1).To(BeTrue())
		Expect(ok2).To(BeTrue())
		Expect(ok3).To(BeFalse())

		_, ok4 := s.ReserveBlockFor(0x080)
		Expect(ok4).To(BeTrue())
	})

	It("should pick the least recently used entry as victim", func() {
		e1, _ := s.ReserveBlockFor(0x040)
		e2, _ := s.ReserveBlockFor(0x140)

		victim, ok := s.GetReplacementEntry(0x240)
		Expect(ok).To(BeTrue())
		Expect(victim).To(BeIdenticalTo(e1))

		s.UpdateLRU(0x040)
		victim, _ = s.GetReplacementEntry(0x240)
		Expect(victim).To(BeIdenticalTo(e2))
		Expect(s.Occupancy()).To(Equal(2))
	})

	It("should report no victim for an empty set", func() {
		_, ok := s.GetReplacementEntry(0x0c0)

		Expect(ok).To(BeFalse())
	})

	It("should invalidate", func() {
		e, _ := s.ReserveBlockFor(0x040)
		e.Dirty = true

		s.Invalidate(e.Index)

		Expect(e.Free).To(BeTrue())
		Expect(e.Dirty).To(BeFalse())
		Expect(s.HasMatch(0x040)).To(BeFalse())
		Expect(s.Occupancy()).To(Equal(0))
	})

	It("should panic on double free", func() {
		e, _ := s.ReserveBlockFor(0x040)
		s.Invalidate(e.Index)

		Expect(func() { s.Invalidate(e.Index) }).To(Panic())
	})

	It("should panic when touching an absent address", func() {
		Expect(func() { s.UpdateLRU(0x040) }).To(Panic())
	})

	It("should keep occupancy equal to the entries in use", func() {
		addrs := []uint64{0x000, 0x100, 0x040, 0x140, 0x080, 0x0c0, 0x1c0}
		for i, addr := range addrs {
			s.ReserveBlockFor(addr)
			if i%3 == 2 {
				e, _ := s.GetEntry(addrs[i-1])
				s.Invalidate(e.Index)
			}

			Expect(s.Occupancy()).To(Equal(countInUse()))
			Expect(s.Occupancy()).To(BeNumerically("<=", s.Capacity()))
		}
	})

	It("should visit entries in use", func() {
		s.ReserveBlockFor(0x040)
		s.ReserveBlockFor(0x080)

		visited := 0
		s.ForEachInUse(func(e *Block) { visited++ })

		Expect(visited).To(Equal(2))
	})
})
