package cache

import (
	"fmt"
	"io"

	"github.com/sarchlab/mesisim/mem/coherence/mesi"
)

// Stats counts what a cache has done.
type Stats struct {
	Requests     uint64
	Hits         uint64
	Misses       uint64
	TotalLatency uint64
	Stalls       [numStallReasons]uint64
	Wakeups      uint64
	Evictions    uint64
	DroppedStale uint64
	StrayDemands uint64
	Ignored      uint64
	MemLoads     uint64
	MemStores    uint64
	PacketsIn    uint64
	PacketsOut   uint64
	CreditsIn    uint64
	LocalIn      uint64
	LocalOut     uint64
}

// StallCount returns the number of stalls of a reason.
func (s Stats) StallCount(reason StallReason) uint64 {
	return s.Stalls[reason]
}

// AutomataStats sums the counters of all the automata of the cache.
func (c *Comp) AutomataStats() mesi.Stats {
	var sum mesi.Stats

	for i := 0; i < c.store.Capacity(); i++ {
		sum = sum.Add(c.role.automaton(i).Stats())
	}

	for _, a := range c.role.others() {
		sum = sum.Add(a.Stats())
	}

	return sum
}

// ReportStats writes the counters of the cache as "name.key value" lines.
func (c *Comp) ReportStats(w io.Writer) {
	s := c.stats
	a := c.AutomataStats()

	lines := []struct {
		key   string
		value uint64
	}{
		{"requests", s.Requests},
		{"hits", s.Hits},
		{"misses", s.Misses},
		{"total_latency", s.TotalLatency},
		{"mshr_stalls", s.Stalls[MSHRStall]},
		{"prev_pend_stalls", s.Stalls[PrevPendStall]},
		{"lru_busy_stalls", s.Stalls[LRUBusyStall]},
		{"trans_stalls", s.Stalls[TransStall]},
		{"wakeups", s.Wakeups},
		{"evictions", s.Evictions},
		{"dropped_stale", s.DroppedStale},
		{"stray_demands", s.StrayDemands},
		{"ignored", s.Ignored},
		{"mem_loads", s.MemLoads},
		{"mem_stores", s.MemStores},
		{"packets_in", s.PacketsIn},
		{"packets_out", s.PacketsOut},
		{"credits_in", s.CreditsIn},
		{"local_in", s.LocalIn},
		{"local_out", s.LocalOut},
		{"protocol.transitions", a.Transitions},
		{"protocol.msgs_sent", a.MsgsSent},
		{"protocol.msgs_received", a.MsgsReceived},
		{"protocol.races", a.Races},
		{"protocol.writebacks", a.Writebacks},
		{"protocol.invalidations", a.Invalidations},
	}

	for _, l := range lines {
		fmt.Fprintf(w, "%s.%s %d\n", c.Name(), l.key, l.value)
	}

	fmt.Fprintf(w, "%s.occupancy %d/%d\n",
		c.Name(), c.store.Occupancy(), c.store.Capacity())
}
