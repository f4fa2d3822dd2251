package mesi

// Stats counts what an automaton has done.
type Stats struct {
	Transitions   uint64
	MsgsSent      uint64
	MsgsReceived  uint64
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Races         uint64
	Ignored       uint64
	Writebacks    uint64
	Invalidations uint64
}

// Add returns the sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Transitions:   s.Transitions + o.Transitions,
		MsgsSent:      s.MsgsSent + o.MsgsSent,
		MsgsReceived:  s.MsgsReceived + o.MsgsReceived,
		Hits:          s.Hits + o.Hits,
		Misses:        s.Misses + o.Misses,
		Evictions:     s.Evictions + o.Evictions,
		Races:         s.Races + o.Races,
		Ignored:       s.Ignored + o.Ignored,
		Writebacks:    s.Writebacks + o.Writebacks,
		Invalidations: s.Invalidations + o.Invalidations,
	}
}
