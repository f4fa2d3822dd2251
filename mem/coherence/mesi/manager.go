package mesi

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/mem/coherence/sharers"
)

// NoOwner marks a line without an exclusive holder.
const NoOwner = -1

// Manager is the directory automaton of one line. In E the line has an
// owner; in S it has sharers. The two are never recorded at the same time.
type Manager struct {
	id        int
	ports     coherence.Ports
	transport ManagerTransport
	logger    logrus.FieldLogger

	addr    uint64
	state   ManagerState
	owner   int
	sharers sharers.Set

	requester   int
	awaiting    sharers.Set
	gotUnblockS bool
	gotData     bool

	stats Stats
}

// NewManager creates a manager automaton in state I. The id is the node id
// of the directory that owns the automaton.
func NewManager(
	id int,
	ports coherence.Ports,
	transport ManagerTransport,
	logger logrus.FieldLogger,
) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Manager{
		id:        id,
		ports:     ports,
		transport: transport,
		logger:    logger,
		owner:     NoOwner,
		requester: NoOwner,
	}
}

// Bind points an idle automaton at a new line.
func (m *Manager) Bind(addr uint64) {
	if m.state != ManagerI {
		m.violation("Bind", -1)
	}

	m.addr = addr
	m.owner = NoOwner
	m.requester = NoOwner
	m.sharers.Clear()
}

// Addr returns the address of the line.
func (m *Manager) Addr() uint64 {
	return m.addr
}

// State returns the current state.
func (m *Manager) State() ManagerState {
	return m.state
}

// StateName returns the current state as a string.
func (m *Manager) StateName() string {
	return m.state.String()
}

// IsStable tells if the automaton is in I, E or S.
func (m *Manager) IsStable() bool {
	return m.state.IsStable()
}

// ReqPending tells if the automaton waits for a message.
func (m *Manager) ReqPending() bool {
	return !m.state.IsStable()
}

// Owner returns the exclusive holder, or NoOwner.
func (m *Manager) Owner() int {
	return m.owner
}

// Sharers returns the ids of the clients recorded as sharers.
func (m *Manager) Sharers() []int {
	return m.sharers.IDs()
}

// Stats returns the counters of the automaton.
func (m *Manager) Stats() Stats {
	return m.stats
}

// Process handles a protocol message addressed to the line.
func (m *Manager) Process(msg *coherence.CohMsg) {
	m.stats.MsgsReceived++

	switch m.state {
	case ManagerI:
		m.processInI(msg)
	case ManagerIE, ManagerEE:
		m.processUnblockE(msg)
	case ManagerE:
		m.processInE(msg)
	case ManagerES:
		m.processInES(msg)
	case ManagerS:
		m.processInS(msg)
	case ManagerSS:
		m.processInSS(msg)
	case ManagerSIE, ManagerSIEvict:
		m.processInvalidationAck(msg)
	case ManagerEIPut, ManagerEIEvict:
		m.processOwnerRelease(msg)
	}
}

// Evict takes the line away from all the clients so that the entry can be
// reused.
func (m *Manager) Evict() {
	m.stats.Evictions++

	switch m.state {
	case ManagerE:
		m.sendToClient(coherence.OpDemandI, m.owner, coherence.NoForward)
		m.moveTo(ManagerEIEvict)
	case ManagerS:
		if m.demandAll(NoOwner) == 0 {
			m.becomeInvalid()
			return
		}

		m.moveTo(ManagerSIEvict)
	default:
		m.violation("Evict", -1)
	}
}

func (m *Manager) processInI(msg *coherence.CohMsg) {
	switch msg.Opcode {
	case coherence.OpItoE, coherence.OpItoS:
		m.grantExclusive(msg.SrcID)
	case coherence.OpEtoI, coherence.OpMtoI:
		m.ignore(msg)
	default:
		m.violation(msg.Opcode.String(), msg.SrcID)
	}
}

func (m *Manager) processUnblockE(msg *coherence.CohMsg) {
	if msg.Opcode != coherence.OpUnblockE || msg.SrcID != m.owner {
		m.violation(msg.Opcode.String(), msg.SrcID)
	}

	m.moveTo(ManagerE)
}

func (m *Manager) processInE(msg *coherence.CohMsg) {
	switch msg.Opcode {
	case coherence.OpItoE:
		m.mustNotBeOwner(msg)
		m.sendToClient(coherence.OpFwdE, m.owner, msg.SrcID)
		m.owner = msg.SrcID
		m.moveTo(ManagerEE)
	case coherence.OpItoS:
		m.mustNotBeOwner(msg)
		m.sendToClient(coherence.OpFwdS, m.owner, msg.SrcID)
		m.sharers.Clear()
		m.sharers.Add(m.owner)
		m.sharers.Add(msg.SrcID)
		m.owner = NoOwner
		m.gotUnblockS = false
		m.gotData = false
		m.moveTo(ManagerES)
	case coherence.OpEtoI, coherence.OpMtoI:
		if msg.SrcID != m.owner {
			// The sender lost the line to a forward while evicting.
			m.ignore(msg)
			return
		}

		m.sendToClient(coherence.OpGrantI, m.owner, coherence.NoForward)
		m.moveTo(ManagerEIPut)
	default:
		m.violation(msg.Opcode.String(), msg.SrcID)
	}
}

func (m *Manager) processInES(msg *coherence.CohMsg) {
	switch msg.Opcode {
	case coherence.OpUnblockS:
		m.gotUnblockS = true
	case coherence.OpClean:
		m.gotData = true
	case coherence.OpWriteback:
		m.gotData = true
		m.writeback()
	default:
		m.violation(msg.Opcode.String(), msg.SrcID)
	}

	if m.gotUnblockS && m.gotData {
		m.moveTo(ManagerS)
	}
}

func (m *Manager) processInS(msg *coherence.CohMsg) {
	switch msg.Opcode {
	case coherence.OpItoS:
		m.sendToClient(coherence.OpGrantSData, msg.SrcID, coherence.NoForward)
		m.sharers.Add(msg.SrcID)
		m.moveTo(ManagerSS)
	case coherence.OpItoE:
		m.requester = msg.SrcID
		if m.demandAll(msg.SrcID) == 0 {
			m.grantExclusive(m.requester)
			return
		}

		m.moveTo(ManagerSIE)
	case coherence.OpEtoI, coherence.OpMtoI:
		m.logger.WithFields(logrus.Fields{
			"manager": m.id,
			"addr":    m.addr,
			"state":   m.state.String(),
			"msg":     msg.Opcode.String(),
			"src":     msg.SrcID,
		}).Warn("eviction of a line held in S, ignored")
		m.ignore(msg)
	default:
		m.violation(msg.Opcode.String(), msg.SrcID)
	}
}

func (m *Manager) processInSS(msg *coherence.CohMsg) {
	if msg.Opcode != coherence.OpUnblockS {
		m.violation(msg.Opcode.String(), msg.SrcID)
	}

	m.moveTo(ManagerS)
}

func (m *Manager) processInvalidationAck(msg *coherence.CohMsg) {
	// Only a client that was sent DEMAND_I may ack, and only once.
	if msg.Opcode != coherence.OpUnblockI || !m.awaiting.Has(msg.SrcID) {
		m.violation(msg.Opcode.String(), msg.SrcID)
	}

	m.awaiting.Remove(msg.SrcID)
	if !m.awaiting.IsEmpty() {
		return
	}

	if m.state == ManagerSIEvict {
		m.becomeInvalid()
		return
	}

	m.grantExclusive(m.requester)
}

func (m *Manager) processOwnerRelease(msg *coherence.CohMsg) {
	if msg.SrcID != m.owner {
		m.violation(msg.Opcode.String(), msg.SrcID)
	}

	switch msg.Opcode {
	case coherence.OpUnblockI:
	case coherence.OpUnblockIDirty:
		m.writeback()
	default:
		m.violation(msg.Opcode.String(), msg.SrcID)
	}

	m.becomeInvalid()
}

func (m *Manager) grantExclusive(requester int) {
	m.sharers.Clear()
	m.owner = requester
	m.requester = NoOwner
	m.sendToClient(coherence.OpGrantEData, requester, coherence.NoForward)
	m.moveTo(ManagerIE)
}

// demandAll sends DEMAND_I to every sharer but except, records them as
// awaited and returns how many acks to wait for. The sharers are cleared.
func (m *Manager) demandAll(except int) int {
	m.awaiting.Clear()
	m.sharers.ForEach(func(id int) {
		if id == except {
			return
		}

		m.stats.Invalidations++
		m.sendToClient(coherence.OpDemandI, id, coherence.NoForward)
		m.awaiting.Add(id)
	})
	m.sharers.Clear()

	return m.awaiting.Count()
}

func (m *Manager) mustNotBeOwner(msg *coherence.CohMsg) {
	if msg.SrcID == m.owner {
		m.violation(msg.Opcode.String(), msg.SrcID)
	}
}

func (m *Manager) becomeInvalid() {
	m.owner = NoOwner
	m.requester = NoOwner
	m.sharers.Clear()
	m.awaiting.Clear()
	m.moveTo(ManagerI)
	m.transport.Invalidate()
}

func (m *Manager) writeback() {
	m.stats.Writebacks++
	m.transport.ClientWriteback()
}

func (m *Manager) ignore(msg *coherence.CohMsg) {
	m.stats.Ignored++
	m.stats.Races++
	m.transport.Ignore(msg)
}

func (m *Manager) moveTo(s ManagerState) {
	if m.state != s {
		m.stats.Transitions++
	}

	m.state = s
}

func (m *Manager) sendToClient(op coherence.Opcode, dst, forwardID int) {
	m.stats.MsgsSent++
	m.transport.Send(&coherence.CohMsg{
		Kind:      coherence.KindOf(op),
		Opcode:    op,
		Addr:      m.addr,
		ForwardID: forwardID,
		SrcID:     m.id,
		SrcPort:   m.ports.Manager,
		DstID:     dst,
		DstPort:   m.ports.Client,
	})
}

func (m *Manager) violation(event string, src int) {
	panic(&ProtocolViolation{
		Role:  "manager",
		ID:    m.id,
		State: m.state.String(),
		Event: event,
		Addr:  m.addr,
		Src:   src,
	})
}
