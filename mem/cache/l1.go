package cache

import (
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/mem/coherence/mesi"
)

// l1Role runs a client automaton per entry and answers the processor.
type l1Role struct {
	comp     *Comp
	clients  []*mesi.Client
	stray    *mesi.Client
	managers AddressMapper
}

func (l *l1Role) kind() string {
	return "l1"
}

func (l *l1Role) unitPort() uint8 {
	return l.comp.ports.Client
}

func (l *l1Role) bind(idx int, addr uint64) {
	l.clients[idx].Bind(addr, l.managers.Find(addr))
}

func (l *l1Role) isStable(idx int) bool {
	return l.clients[idx].IsStable()
}

func (l *l1Role) automaton(idx int) mesi.Automaton {
	return l.clients[idx]
}

func (l *l1Role) others() []mesi.Automaton {
	return []mesi.Automaton{l.stray}
}

func (l *l1Role) access(idx int, r *Request) {
	if r.Access.Op == coherence.Store {
		r.hit = l.clients[idx].GetWrite()
	} else {
		r.hit = l.clients[idx].GetRead()
	}
}

func (l *l1Role) allocated(idx int, r *Request) {
	l.access(idx, r)
}

func (l *l1Role) evict(idx int) {
	l.clients[idx].GetEvict()
}

func (l *l1Role) dropsMiss(_ *Request) bool {
	return false
}

// finish answers the processor. A store that was granted E writes now.
func (l *l1Role) finish(idx int, r *Request) {
	client := l.clients[idx]
	if r.Access.Op == coherence.Store && client.State() == mesi.ClientE {
		client.GetWrite()
	}

	l.comp.respond(r)
}

func (l *l1Role) release(_ int) {}

func (l *l1Role) writeback(_ int) {
	panic("a private cache never writes back on behalf of a client")
}

func (l *l1Role) handleCoh(msg *coherence.CohMsg) {
	if idx, found := l.comp.lineOf(msg.Addr); found {
		l.comp.drive(idx, func() { l.clients[idx].Process(msg) })
		return
	}

	if msg.Opcode != coherence.OpDemandI {
		l.comp.absent(msg.Opcode.String(), msg.Addr, msg.SrcID)
	}

	// The line was dropped silently while the directory still lists us.
	l.comp.stats.StrayDemands++
	l.stray.Bind(msg.Addr, msg.SrcID)
	l.stray.Process(msg)
}

func (l *l1Role) handleMem(msg *coherence.MemMsg) {
	l.comp.absent("mem-"+msg.Op.String(), msg.Addr, msg.SrcID)
}

func (c *Comp) respond(r *Request) {
	if r.hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}

	c.stats.TotalLatency += uint64(c.CurrentTime() - r.since)

	rsp := coherence.NewCacheRsp(r.Access, r.hit)
	c.topPort.SendAfter(rsp, c.store.Settings().HitTime)
}
