package cache

import (
	"fmt"

	"github.com/sarchlab/mesisim/sim"
)

// StallReason tells why an admitted request cannot proceed.
type StallReason int

// The reasons a request can stall.
const (
	// MSHRStall means no MSHR slot was free.
	MSHRStall StallReason = iota
	// PrevPendStall means an earlier request to the same line is in flight.
	PrevPendStall
	// LRUBusyStall means the set is full and its victim is in transition.
	LRUBusyStall
	// TransStall means the line is present but in transition.
	TransStall

	numStallReasons
)

func (r StallReason) String() string {
	switch r {
	case MSHRStall:
		return "MSHR_STALL"
	case PrevPendStall:
		return "PREV_PEND_STALL"
	case LRUBusyStall:
		return "LRU_BUSY_STALL"
	case TransStall:
		return "TRANS_STALL"
	default:
		return fmt.Sprintf("StallReason(%d)", int(r))
	}
}

// StallEntry is a request waiting in the stall buffer. Key is the data
// array entry the request waits on, or -1 when it waits on the MSHR.
type StallEntry struct {
	Req    *Request
	Reason StallReason
	Since  sim.VTimeInCycle
	Key    int
}

// stallBuffer keeps stalled requests in arrival order. Requests are never
// polled; they leave only when a wakeup picks them.
type stallBuffer struct {
	entries []StallEntry
}

func (b *stallBuffer) push(e StallEntry) {
	b.entries = append(b.entries, e)
}

func (b *stallBuffer) len() int {
	return len(b.entries)
}

func (b *stallBuffer) hasAddr(addr uint64) bool {
	for _, e := range b.entries {
		if e.Req.Addr == addr {
			return true
		}
	}

	return false
}

// popTagged removes the oldest request that waits on the entry.
func (b *stallBuffer) popTagged(idx int) (StallEntry, bool) {
	return b.popFirst(func(e StallEntry) bool {
		return (e.Reason == TransStall || e.Reason == LRUBusyStall) &&
			e.Key == idx
	})
}

// popPrevPend removes the oldest request that waits for the line to be
// released by an earlier request.
func (b *stallBuffer) popPrevPend(addr uint64) (StallEntry, bool) {
	return b.popFirst(func(e StallEntry) bool {
		return e.Reason == PrevPendStall && e.Req.Addr == addr
	})
}

// popMSHR removes the oldest request that waits for an MSHR slot.
func (b *stallBuffer) popMSHR() (StallEntry, bool) {
	return b.popFirst(func(e StallEntry) bool {
		return e.Reason == MSHRStall
	})
}

func (b *stallBuffer) popFirst(match func(StallEntry) bool) (StallEntry, bool) {
	for i, e := range b.entries {
		if match(e) {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return e, true
		}
	}

	return StallEntry{}, false
}

func (b *stallBuffer) snapshot() []StallEntry {
	return append([]StallEntry(nil), b.entries...)
}
