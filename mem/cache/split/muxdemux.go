// Package split places a private unit (LLP) and a slice of the shared level
// (LLS) on every node. Both are ordinary caches; a MuxDemux shares the
// node's network port between them.
package split

import (
	"fmt"
	"io"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/cache"
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// MuxStats counts the traffic through a MuxDemux.
type MuxStats struct {
	PacketsOut  uint64
	PacketsIn   uint64
	CreditsIn   uint64
	LLSFirst    uint64
	CreditStall uint64
}

// A MuxDemux forwards the packets of the two caches of a node to the
// network and hands incoming packets to the cache their unit port names.
type MuxDemux struct {
	*sim.TickingComponent

	id     int
	ports  coherence.Ports
	types  coherence.MsgTypes
	logger *logrus.Entry

	networkPort sim.Port
	netIf       *coherence.NetworkInterface
	creditDelay sim.VTimeInCycle

	llp, lls *cache.Comp
	llpQueue []*coherence.NetworkPacket
	llsQueue []*coherence.NetworkPacket

	credits    int
	maxCredits int

	stats MuxStats
}

// side is the outlet one cache sends its packets to.
type side struct {
	mux *MuxDemux
	lls bool
}

// Send queues a packet from the cache.
func (s side) Send(pkt *coherence.NetworkPacket) {
	if s.lls {
		s.mux.llsQueue = append(s.mux.llsQueue, pkt)
	} else {
		s.mux.llpQueue = append(s.mux.llpQueue, pkt)
	}

	s.mux.TickLater()
}

// Port returns the network port of the node.
func (m *MuxDemux) Port() sim.Port {
	return m.networkPort
}

// Stats returns the counters of the MuxDemux.
func (m *MuxDemux) Stats() MuxStats {
	return m.stats
}

// Credits returns the number of packets the node may still put on the
// network.
func (m *MuxDemux) Credits() int {
	return m.credits
}

// Pending returns the number of packets waiting to be forwarded from the
// LLP and from the LLS.
func (m *MuxDemux) Pending() (llp, lls int) {
	return len(m.llpQueue), len(m.llsQueue)
}

// Tick forwards outgoing packets, then takes in what the network delivered.
func (m *MuxDemux) Tick() bool {
	madeProgress := false

	madeProgress = m.forward() || madeProgress
	madeProgress = m.demux() || madeProgress

	return madeProgress
}

// forward sends at most one packet from each side. When both sides have a
// packet, the LLS packet goes first.
func (m *MuxDemux) forward() bool {
	if len(m.llsQueue) > 0 && len(m.llpQueue) > 0 {
		m.stats.LLSFirst++
	}

	madeProgress := false

	if len(m.llsQueue) > 0 && m.takeCredit() {
		m.llsQueue = m.sendHead(m.llsQueue, m.lls)
		madeProgress = true
	}

	if len(m.llpQueue) > 0 && m.takeCredit() {
		m.llpQueue = m.sendHead(m.llpQueue, m.llp)
		madeProgress = true
	}

	return madeProgress
}

func (m *MuxDemux) takeCredit() bool {
	if m.credits == 0 {
		m.stats.CreditStall++
		return false
	}

	m.credits--

	return true
}

func (m *MuxDemux) sendHead(
	queue []*coherence.NetworkPacket,
	from *cache.Comp,
) []*coherence.NetworkPacket {
	pkt := queue[0]
	queue[0] = nil

	m.netIf.Send(pkt)
	m.stats.PacketsOut++
	from.AcceptCredit()

	return queue[1:]
}

func (m *MuxDemux) demux() bool {
	madeProgress := false

	for {
		item := m.networkPort.RetrieveIncoming()
		if item == nil {
			return madeProgress
		}

		madeProgress = true
		pkt := item.(*coherence.NetworkPacket)

		if m.netIf.IsCredit(pkt) {
			m.addCredit()
			continue
		}

		m.stats.PacketsIn++
		m.netIf.ReturnCredit(pkt.Src, m.creditDelay)

		msg, err := m.types.Open(pkt)
		if err != nil {
			log.Panicf("%s: %v", m.Name(), err)
		}

		m.target(pkt.DstPort()).Deliver(msg)
	}
}

func (m *MuxDemux) target(port uint8) *cache.Comp {
	switch port {
	case m.ports.Client:
		return m.llp
	case m.ports.Manager:
		return m.lls
	default:
		log.Panicf("%s: no unit on port %d", m.Name(), port)
	}

	return nil
}

func (m *MuxDemux) addCredit() {
	if m.credits >= m.maxCredits {
		log.Panicf("%s: credits exceed the maximum of %d",
			m.Name(), m.maxCredits)
	}

	m.stats.CreditsIn++
	m.credits++

	if m.logger.Logger.IsLevelEnabled(logrus.TraceLevel) {
		m.logger.WithField("credits", m.credits).Trace("credit")
	}
}

// ReportStats writes the counters of the MuxDemux as "name.key value"
// lines.
func (m *MuxDemux) ReportStats(w io.Writer) {
	s := m.stats

	fmt.Fprintf(w, "%s.packets_out %d\n", m.Name(), s.PacketsOut)
	fmt.Fprintf(w, "%s.packets_in %d\n", m.Name(), s.PacketsIn)
	fmt.Fprintf(w, "%s.credits_in %d\n", m.Name(), s.CreditsIn)
	fmt.Fprintf(w, "%s.lls_first %d\n", m.Name(), s.LLSFirst)
	fmt.Fprintf(w, "%s.credit_stalls %d\n", m.Name(), s.CreditStall)
}
