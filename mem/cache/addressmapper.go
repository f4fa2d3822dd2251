package cache

// AddressMapper finds the node id of the next level unit that is in charge
// of an address.
type AddressMapper interface {
	Find(address uint64) int
}

// SingleTarget is used when a unit is connected with only one next level
// unit.
type SingleTarget struct {
	Target int
}

// Find simply returns the solo unit that it connects to.
func (m *SingleTarget) Find(_ uint64) int {
	return m.Target
}

// Interleaved spreads the address space over the targets in chunks of
// InterleavingSize bytes.
type Interleaved struct {
	InterleavingSize uint64
	Targets          []int
}

// NewInterleaved creates a new mapper for interleaved next level units.
func NewInterleaved(interleavingSize uint64, targets ...int) *Interleaved {
	if interleavingSize == 0 {
		panic("interleaving size must be positive")
	}

	if len(targets) == 0 {
		panic("at least one target is required")
	}

	return &Interleaved{
		InterleavingSize: interleavingSize,
		Targets:          targets,
	}
}

// Find returns the unit that is in charge of the address.
func (m *Interleaved) Find(address uint64) int {
	number := address / m.InterleavingSize % uint64(len(m.Targets))

	return m.Targets[number]
}
