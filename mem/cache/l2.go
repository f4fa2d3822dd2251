package cache

import (
	"log"

	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/mem/coherence/mesi"
)

// l2Role runs a manager automaton per entry and fetches missing lines from
// memory before the manager sees the request.
type l2Role struct {
	comp     *Comp
	managers []*mesi.Manager
	fetching []bool
	memory   AddressMapper
}

func (l *l2Role) kind() string {
	return "l2"
}

func (l *l2Role) unitPort() uint8 {
	return l.comp.ports.Manager
}

func (l *l2Role) bind(idx int, addr uint64) {
	l.managers[idx].Bind(addr)
}

func (l *l2Role) isStable(idx int) bool {
	return l.managers[idx].IsStable() && !l.fetching[idx]
}

func (l *l2Role) automaton(idx int) mesi.Automaton {
	return l.managers[idx]
}

func (l *l2Role) others() []mesi.Automaton {
	return nil
}

func (l *l2Role) access(idx int, r *Request) {
	r.hit = true
	l.comp.stats.Hits++
	l.managers[idx].Process(r.Coh)
}

func (l *l2Role) allocated(idx int, r *Request) {
	l.comp.stats.Misses++
	l.fetching[idx] = true
	l.sendToMemory(coherence.MemLoad, r.Addr)
}

func (l *l2Role) evict(idx int) {
	l.managers[idx].Evict()
}

// dropsMiss drops an eviction notice for a line that is already gone. The
// directory let the line go while the notice was on its way.
func (l *l2Role) dropsMiss(r *Request) bool {
	op := r.Coh.Opcode

	return op == coherence.OpEtoI || op == coherence.OpMtoI
}

func (l *l2Role) finish(_ int, _ *Request) {}

func (l *l2Role) release(idx int) {
	l.fetching[idx] = false
}

func (l *l2Role) writeback(idx int) {
	l.sendToMemory(coherence.MemStore, l.managers[idx].Addr())
}

func (l *l2Role) sendToMemory(op coherence.MemOp, addr uint64) {
	if op == coherence.MemLoad {
		l.comp.stats.MemLoads++
	} else {
		l.comp.stats.MemStores++
	}

	dst := l.memory.Find(addr)
	l.comp.emit(&coherence.MemMsg{
		Kind:    coherence.Request,
		Op:      op,
		Addr:    addr,
		SrcID:   l.comp.id,
		SrcPort: l.comp.ports.Manager,
		DstID:   dst,
		DstPort: l.comp.ports.Memory,
	}, dst, l.comp.ports.Memory)
}

func (l *l2Role) handleCoh(msg *coherence.CohMsg) {
	if msg.Kind == coherence.Request {
		switch msg.Opcode {
		case coherence.OpItoS, coherence.OpItoE,
			coherence.OpEtoI, coherence.OpMtoI:
			l.comp.admit(l.comp.newCohRequest(msg), true)
		default:
			l.comp.absent(msg.Opcode.String(), msg.Addr, msg.SrcID)
		}

		return
	}

	idx, found := l.comp.lineOf(msg.Addr)
	if !found {
		l.comp.absent(msg.Opcode.String(), msg.Addr, msg.SrcID)
	}

	l.comp.drive(idx, func() { l.managers[idx].Process(msg) })
}

func (l *l2Role) handleMem(msg *coherence.MemMsg) {
	if msg.Kind != coherence.Reply || msg.Op != coherence.MemLoad {
		log.Panicf("%s: unexpected memory message %s",
			l.comp.Name(), msg)
	}

	idx, found := l.comp.lineOf(msg.Addr)
	if !found || !l.fetching[idx] {
		log.Panicf("%s: memory data for 0x%x that is not being fetched",
			l.comp.Name(), msg.Addr)
	}

	l.fetching[idx] = false
	r := l.comp.active[idx]
	l.comp.drive(idx, func() { l.managers[idx].Process(r.Coh) })
}
