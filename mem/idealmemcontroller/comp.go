// Package idealmemcontroller provides a memory controller that answers
// every request after a fixed number of cycles.
package idealmemcontroller

import (
	"fmt"
	"io"
	"log"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
	"github.com/sarchlab/mesisim/tracing"
)

type respondEvent struct {
	*sim.EventBase
	pkt *coherence.NetworkPacket
	msg *coherence.MemMsg
}

func newRespondEvent(
	time sim.VTimeInCycle,
	handler sim.Handler,
	pkt *coherence.NetworkPacket,
	msg *coherence.MemMsg,
) *respondEvent {
	return &respondEvent{sim.NewEventBase(time, handler), pkt, msg}
}

// Stats counts what the memory controller has done.
type Stats struct {
	Loads        uint64
	Stores       uint64
	Replies      uint64
	CreditsIn    uint64
	CreditStalls uint64
}

// An Comp is an ideal memory controller. It answers a load with a reply and
// absorbs a store, both after Latency cycles. There is no limitation on the
// number of requests in flight.
type Comp struct {
	*sim.TickingComponent

	id     int
	ports  coherence.Ports
	types  coherence.MsgTypes
	logger *logrus.Entry

	networkPort sim.Port
	netIf       *coherence.NetworkInterface

	Latency sim.VTimeInCycle
	width   int

	outBuf     []*coherence.NetworkPacket
	credits    int
	maxCredits int

	stats Stats
}

// ID returns the node id of the memory controller.
func (c *Comp) ID() int {
	return c.id
}

// Port returns the network port.
func (c *Comp) Port() sim.Port {
	return c.networkPort
}

// Stats returns the counters.
func (c *Comp) Stats() Stats {
	return c.stats
}

// Handle defines how the Comp handles event
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *respondEvent:
		return c.handleRespondEvent(e)
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

// Tick sends replies, then takes in requests.
func (c *Comp) Tick() bool {
	madeProgress := false

	for i := 0; i < c.width; i++ {
		madeProgress = c.send() || madeProgress
	}

	for i := 0; i < c.width; i++ {
		madeProgress = c.takeIn() || madeProgress
	}

	return madeProgress
}

func (c *Comp) send() bool {
	if len(c.outBuf) == 0 {
		return false
	}

	if c.credits == 0 {
		c.stats.CreditStalls++
		return false
	}

	c.credits--
	pkt := c.outBuf[0]
	c.outBuf[0] = nil
	c.outBuf = c.outBuf[1:]
	c.netIf.Send(pkt)
	c.stats.Replies++

	return true
}

func (c *Comp) takeIn() bool {
	item := c.networkPort.RetrieveIncoming()
	if item == nil {
		return false
	}

	pkt := item.(*coherence.NetworkPacket)

	if c.netIf.IsCredit(pkt) {
		c.addCredit()
		return true
	}

	msg, err := c.types.Open(pkt)
	if err != nil {
		log.Panicf("%s: %v", c.Name(), err)
	}

	memMsg, ok := msg.(*coherence.MemMsg)
	if !ok {
		log.Panicf("%s: cannot handle %T", c.Name(), msg)
	}

	tracing.TraceReqReceive(pkt, c)

	evt := newRespondEvent(c.CurrentTime()+c.Latency, c, pkt, memMsg)
	c.Engine.Schedule(evt)

	return true
}

func (c *Comp) addCredit() {
	if c.credits >= c.maxCredits {
		log.Panicf("%s: credits exceed the maximum of %d",
			c.Name(), c.maxCredits)
	}

	c.stats.CreditsIn++
	c.credits++
}

func (c *Comp) handleRespondEvent(e *respondEvent) error {
	msg := e.msg

	c.netIf.ReturnCredit(e.pkt.Src, 0)
	tracing.TraceReqComplete(e.pkt, c)

	if c.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		c.logger.WithFields(logrus.Fields{
			"addr": msg.Addr,
			"op":   msg.Op.String(),
			"from": msg.SrcID,
		}).Debug("memory access")
	}

	if msg.Op == coherence.MemStore {
		c.stats.Stores++
		return nil
	}

	c.stats.Loads++

	rsp := &coherence.MemMsg{
		Kind:    coherence.Reply,
		Op:      coherence.MemLoad,
		Addr:    msg.Addr,
		SrcID:   c.id,
		SrcPort: c.ports.Memory,
		DstID:   msg.SrcID,
		DstPort: msg.SrcPort,
	}
	c.outBuf = append(c.outBuf, c.types.Wrap(rsp))
	c.TickLater()

	return nil
}

// ReportStats writes the counters as "name.key value" lines.
func (c *Comp) ReportStats(w io.Writer) {
	fmt.Fprintf(w, "%s.loads %d\n", c.Name(), c.stats.Loads)
	fmt.Fprintf(w, "%s.stores %d\n", c.Name(), c.stats.Stores)
	fmt.Fprintf(w, "%s.replies %d\n", c.Name(), c.stats.Replies)
	fmt.Fprintf(w, "%s.credit_stalls %d\n", c.Name(), c.stats.CreditStalls)
}
