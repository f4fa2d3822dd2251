package cache

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/coherence"
)

// lineTransport is what the automaton of one entry uses to act. An index of
// -1 is the automaton that answers for lines the cache does not hold.
type lineTransport struct {
	comp *Comp
	idx  int
}

func (t *lineTransport) Send(msg *coherence.CohMsg) {
	t.comp.emit(msg, msg.DstID, msg.DstPort)
}

func (t *lineTransport) Invalidate() {
	if t.idx < 0 {
		return
	}

	t.comp.invalidated[t.idx] = true
}

func (t *lineTransport) ClientWriteback() {
	t.comp.role.writeback(t.idx)
}

func (t *lineTransport) Ignore(msg *coherence.CohMsg) {
	t.comp.stats.Ignored++

	if t.comp.debugEnabled() {
		t.comp.logger.WithFields(logrus.Fields{
			"addr": msg.Addr,
			"msg":  msg.Opcode.String(),
			"src":  msg.SrcID,
		}).Debug("stale message ignored")
	}
}
