package cache

import (
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// Request is a piece of work a cache admits: a processor access at an L1,
// or a coherence request from a client at an L2.
type Request struct {
	ID   string
	Addr uint64

	Access *coherence.CacheReq
	Coh    *coherence.CohMsg

	slot  int
	hit   bool
	since sim.VTimeInCycle
}

func (r *Request) what() string {
	if r.Access != nil {
		return r.Access.Op.String()
	}

	return r.Coh.Opcode.String()
}
