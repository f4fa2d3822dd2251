// Package cache provides the coherent caches. A Comp couples one data
// array, one MSHR and one automaton per entry, and decides when a request
// may run, when it has to wait, and which waiting request runs next.
package cache

import (
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/cache/store"
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/mem/coherence/mesi"
	"github.com/sarchlab/mesisim/sim"
	"github.com/sarchlab/mesisim/tracing"
)

// role is the part of a cache that depends on which automaton its entries
// run.
type role interface {
	kind() string
	unitPort() uint8

	bind(idx int, addr uint64)
	isStable(idx int) bool
	automaton(idx int) mesi.Automaton
	others() []mesi.Automaton

	access(idx int, r *Request)
	allocated(idx int, r *Request)
	evict(idx int)
	dropsMiss(r *Request) bool
	finish(idx int, r *Request)
	release(idx int)
	writeback(idx int)

	handleCoh(msg *coherence.CohMsg)
	handleMem(msg *coherence.MemMsg)
}

// A Comp is a coherent cache. It is an L1 when its entries run client
// automata and an L2 when they run manager automata.
type Comp struct {
	*sim.TickingComponent

	id     int
	ports  coherence.Ports
	types  coherence.MsgTypes
	logger *logrus.Entry

	topPort     sim.Port
	networkPort sim.Port
	netIf       *coherence.NetworkInterface
	outlet      Outlet
	peer        *Comp
	inbox       []interface{}

	store  *store.Store
	mshr   *store.MSHR
	stalls stallBuffer
	sender *creditedSender

	active      []*Request
	evictWaiter []*Request
	invalidated []bool

	role  role
	stats Stats
}

// ID returns the node id of the cache.
func (c *Comp) ID() int {
	return c.id
}

// Kind returns "l1" or "l2".
func (c *Comp) Kind() string {
	return c.role.kind()
}

// Store returns the data array.
func (c *Comp) Store() *store.Store {
	return c.store
}

// MSHR returns the MSHR.
func (c *Comp) MSHR() *store.MSHR {
	return c.mshr
}

// Stats returns the counters of the cache.
func (c *Comp) Stats() Stats {
	return c.stats
}

// StallBuffer returns a copy of the requests waiting, oldest first.
func (c *Comp) StallBuffer() []StallEntry {
	return c.stalls.snapshot()
}

// Credits returns the number of packets the cache may still send.
func (c *Comp) Credits() int {
	return c.sender.credits
}

// PendingOut returns the number of packets waiting for a credit.
func (c *Comp) PendingOut() int {
	return c.sender.pending()
}

// Automaton returns the automaton of the line holding the address.
func (c *Comp) Automaton(addr uint64) (mesi.Automaton, bool) {
	blk, found := c.store.GetEntry(addr)
	if !found {
		return nil, false
	}

	return c.role.automaton(blk.Index), true
}

// SetOutlet makes the cache send its packets to the outlet instead of its
// own network port.
func (c *Comp) SetOutlet(o Outlet) {
	c.outlet = o
}

// SetLocalPeer makes messages addressed to the peer's unit on this node skip
// the network.
func (c *Comp) SetLocalPeer(peer *Comp) {
	if peer.id != c.id {
		log.Panicf("%s: local peer %s is on node %d, not %d",
			c.Name(), peer.Name(), peer.id, c.id)
	}

	c.peer = peer
}

// UnitPort returns the port value the cache's unit is addressed with.
func (c *Comp) UnitPort() uint8 {
	return c.role.unitPort()
}

// Deliver hands a message to the cache from the same node. The message is
// handled in the next cycle.
func (c *Comp) Deliver(msg interface{}) {
	c.inbox = append(c.inbox, msg)
	c.TickLater()
}

// AcceptCredit gives back a credit taken by a packet sent earlier.
func (c *Comp) AcceptCredit() {
	c.stats.CreditsIn++
	c.sender.addCredit()
	c.TickLater()
}

// Tick sends, then drains the local inbox, the network and the processor,
// always in this order.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.sendOut() || madeProgress
	madeProgress = c.processInbox() || madeProgress
	madeProgress = c.processNetwork() || madeProgress
	madeProgress = c.processTop() || madeProgress

	return madeProgress
}

func (c *Comp) sendOut() bool {
	if c.outlet == nil && c.sender.pending() > 0 {
		log.Panicf("%s: no outlet", c.Name())
	}

	if !c.sender.send(c.outlet) {
		return false
	}

	c.stats.PacketsOut++

	return true
}

func (c *Comp) processInbox() bool {
	if len(c.inbox) == 0 {
		return false
	}

	msgs := c.inbox
	c.inbox = nil

	for _, msg := range msgs {
		c.stats.LocalIn++
		c.receive(msg)
	}

	return true
}

func (c *Comp) processNetwork() bool {
	if c.networkPort == nil {
		return false
	}

	madeProgress := false

	for {
		item := c.networkPort.RetrieveIncoming()
		if item == nil {
			return madeProgress
		}

		madeProgress = true
		pkt := item.(*coherence.NetworkPacket)

		if c.netIf.IsCredit(pkt) {
			c.stats.CreditsIn++
			c.sender.addCredit()

			continue
		}

		c.stats.PacketsIn++
		c.netIf.ReturnCredit(pkt.Src, c.store.Settings().LookupTime)

		msg, err := c.types.Open(pkt)
		if err != nil {
			log.Panicf("%s: %v", c.Name(), err)
		}

		c.receive(msg)
	}
}

func (c *Comp) processTop() bool {
	if c.topPort == nil {
		return false
	}

	madeProgress := false

	for {
		item := c.topPort.RetrieveIncoming()
		if item == nil {
			return madeProgress
		}

		madeProgress = true
		req := item.(*coherence.CacheReq)
		c.admit(c.newAccessRequest(req), true)
	}
}

func (c *Comp) receive(msg interface{}) {
	switch m := msg.(type) {
	case *coherence.CohMsg:
		c.role.handleCoh(m)
	case *coherence.MemMsg:
		c.role.handleMem(m)
	default:
		log.Panicf("%s: cannot handle %T", c.Name(), msg)
	}
}

// emit sends a message to another unit, skipping the network when the unit
// is the local peer.
func (c *Comp) emit(msg interface{}, dstID int, dstPort uint8) {
	if c.peer != nil && dstID == c.id && dstPort == c.peer.UnitPort() {
		c.stats.LocalOut++
		c.peer.Deliver(msg)

		return
	}

	c.sender.push(c.types.Wrap(msg))
	c.TickLater()
}

func (c *Comp) newAccessRequest(req *coherence.CacheReq) *Request {
	r := &Request{
		ID:     tracing.MsgIDAtReceiver(req, c),
		Addr:   c.store.BlockAddr(req.Addr),
		Access: req,
		slot:   -1,
		since:  c.CurrentTime(),
	}

	tracing.StartTask(r.ID, req.ID+"_req_out", c, "req_in", r.what(), r)

	return r
}

func (c *Comp) newCohRequest(msg *coherence.CohMsg) *Request {
	r := &Request{
		ID:    sim.GetIDGenerator().Generate(),
		Addr:  c.store.BlockAddr(msg.Addr),
		Coh:   msg,
		slot:  -1,
		since: c.CurrentTime(),
	}

	tracing.StartTask(r.ID, "", c, "coh_req", r.what(), r)

	return r
}

// admit runs a request or parks it in the stall buffer. A request that was
// woken up (first is false) already holds its MSHR slot.
func (c *Comp) admit(r *Request, first bool) {
	if first {
		c.stats.Requests++

		if _, busy := c.mshr.Lookup(r.Addr); busy || c.stalls.hasAddr(r.Addr) {
			c.stall(r, PrevPendStall, -1)
			return
		}

		slot, ok := c.mshr.Reserve(r.Addr)
		if !ok {
			c.stall(r, MSHRStall, -1)
			return
		}

		r.slot = slot
	}

	if blk, found := c.store.GetEntry(r.Addr); found {
		c.admitHit(r, blk.Index)
		return
	}

	c.admitMiss(r)
}

func (c *Comp) admitHit(r *Request, idx int) {
	// The request keeps its MSHR slot while it waits for the line.
	if !c.role.isStable(idx) {
		c.stall(r, TransStall, idx)
		return
	}

	c.store.UpdateLRU(r.Addr)
	c.mshr.Associate(r.slot, idx)
	c.active[idx] = r
	c.drive(idx, func() { c.role.access(idx, r) })
}

func (c *Comp) admitMiss(r *Request) {
	if c.role.dropsMiss(r) {
		c.stats.DroppedStale++
		c.complete(r)

		return
	}

	if blk, ok := c.store.ReserveBlockFor(r.Addr); ok {
		idx := blk.Index
		c.mshr.Associate(r.slot, idx)
		c.active[idx] = r
		c.role.bind(idx, r.Addr)
		c.drive(idx, func() { c.role.allocated(idx, r) })

		return
	}

	victim, _ := c.store.GetReplacementEntry(r.Addr)
	idx := victim.Index

	// As on a hit, the slot stays reserved until the victim settles.
	if !c.role.isStable(idx) || c.evictWaiter[idx] != nil {
		c.stall(r, LRUBusyStall, idx)
		return
	}

	c.stats.Evictions++
	c.evictWaiter[idx] = r
	c.drive(idx, func() { c.role.evict(idx) })
}

func (c *Comp) stall(r *Request, reason StallReason, key int) {
	c.stats.Stalls[reason]++
	c.stalls.push(StallEntry{
		Req:    r,
		Reason: reason,
		Since:  c.CurrentTime(),
		Key:    key,
	})

	tracing.AddTaskStep(r.ID, c, reason.String())

	if c.debugEnabled() {
		c.logger.WithFields(logrus.Fields{
			"addr":   r.Addr,
			"req":    r.what(),
			"reason": reason.String(),
		}).Debug("stall")
	}
}

// drive lets fn act on the automaton of an entry, then reacts to where the
// automaton ended up.
func (c *Comp) drive(idx int, fn func()) {
	fn()
	c.settle(idx)
}

func (c *Comp) settle(idx int) {
	if c.invalidated[idx] {
		c.invalidated[idx] = false
		c.free(idx)

		return
	}

	if !c.role.isStable(idx) {
		return
	}

	if r := c.active[idx]; r != nil {
		c.active[idx] = nil
		c.role.finish(idx, r)
		c.complete(r)
	}

	c.wake(idx)
}

func (c *Comp) free(idx int) {
	r := c.active[idx]
	c.active[idx] = nil

	c.store.Invalidate(idx)
	c.role.release(idx)

	if w := c.evictWaiter[idx]; w != nil {
		c.evictWaiter[idx] = nil
		c.admit(w, false)
	}

	if r != nil {
		c.role.finish(idx, r)
		c.complete(r)
	}

	c.wake(idx)
}

// wake resubmits the requests waiting on an entry for as long as the entry
// stays stable.
func (c *Comp) wake(idx int) {
	for c.role.isStable(idx) {
		e, ok := c.stalls.popTagged(idx)
		if !ok {
			return
		}

		c.stats.Wakeups++
		c.admit(e.Req, false)
	}
}

// complete releases the MSHR slot of a finished request and hands it to the
// next request of the same line, or else to the oldest request waiting for
// a slot.
func (c *Comp) complete(r *Request) {
	c.mshr.Release(r.slot)
	r.slot = -1

	tracing.EndTask(r.ID, c)

	e, ok := c.stalls.popPrevPend(r.Addr)
	if !ok {
		e, ok = c.stalls.popMSHR()
	}

	if !ok {
		return
	}

	slot, reserved := c.mshr.Reserve(e.Req.Addr)
	if !reserved {
		log.Panicf("%s: no MSHR slot after a release", c.Name())
	}

	e.Req.slot = slot
	c.stats.Wakeups++
	c.admit(e.Req, false)
}

// lineOf returns the entry that holds the address of a message addressed to
// the line.
func (c *Comp) lineOf(addr uint64) (int, bool) {
	blk, found := c.store.GetEntry(c.store.BlockAddr(addr))
	if !found {
		return -1, false
	}

	return blk.Index, true
}

func (c *Comp) absent(event string, addr uint64, src int) {
	panic(&mesi.ProtocolViolation{
		Role:  c.role.kind(),
		ID:    c.id,
		State: "absent",
		Event: event,
		Addr:  addr,
		Src:   src,
	})
}

func (c *Comp) debugEnabled() bool {
	return c.logger.Logger.IsLevelEnabled(logrus.DebugLevel)
}
