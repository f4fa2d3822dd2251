package cache

import (
	"log"

	"github.com/sarchlab/mesisim/mem/coherence"
)

// An Outlet takes the packets a cache puts on the network.
type Outlet interface {
	Send(pkt *coherence.NetworkPacket)
}

// creditedSender queues outgoing packets and sends one per cycle while it
// holds a credit.
type creditedSender struct {
	name    string
	buf     []*coherence.NetworkPacket
	credits int
	max     int
}

func newCreditedSender(name string, credits int) *creditedSender {
	if credits <= 0 {
		log.Panicf("%s: needs at least one credit", name)
	}

	return &creditedSender{
		name:    name,
		credits: credits,
		max:     credits,
	}
}

func (s *creditedSender) push(pkt *coherence.NetworkPacket) {
	s.buf = append(s.buf, pkt)
}

func (s *creditedSender) send(out Outlet) bool {
	if len(s.buf) == 0 || s.credits == 0 {
		return false
	}

	s.credits--
	pkt := s.buf[0]
	s.buf[0] = nil
	s.buf = s.buf[1:]
	out.Send(pkt)

	return true
}

func (s *creditedSender) addCredit() {
	if s.credits >= s.max {
		log.Panicf("%s: credits exceed the maximum of %d", s.name, s.max)
	}

	s.credits++
}

func (s *creditedSender) pending() int {
	return len(s.buf)
}
