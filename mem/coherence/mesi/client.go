package mesi

import (
	"github.com/sarchlab/mesisim/mem/coherence"
)

// Client is the automaton of one line in a private cache.
type Client struct {
	id        int
	ports     coherence.Ports
	transport Transport

	addr      uint64
	managerID int
	state     ClientState
	wantWrite bool

	stats Stats
}

// NewClient creates a client automaton in state I. The id is the node id of
// the cache that owns the automaton.
func NewClient(id int, ports coherence.Ports, transport Transport) *Client {
	return &Client{
		id:        id,
		ports:     ports,
		transport: transport,
		managerID: -1,
	}
}

// Bind points an idle automaton at a new line.
func (c *Client) Bind(addr uint64, managerID int) {
	if c.state != ClientI {
		c.violation("Bind", -1)
	}

	c.addr = addr
	c.managerID = managerID
	c.wantWrite = false
}

// Addr returns the address of the line.
func (c *Client) Addr() uint64 {
	return c.addr
}

// State returns the current state.
func (c *Client) State() ClientState {
	return c.state
}

// StateName returns the current state as a string.
func (c *Client) StateName() string {
	return c.state.String()
}

// IsStable tells if the automaton is in I, S, E or M.
func (c *Client) IsStable() bool {
	return c.state.IsStable()
}

// ReqPending tells if the automaton waits for a message.
func (c *Client) ReqPending() bool {
	return !c.state.IsStable()
}

// Stats returns the counters of the automaton.
func (c *Client) Stats() Stats {
	return c.stats
}

// GetRead asks for read permission. It returns true on a hit.
func (c *Client) GetRead() bool {
	switch c.state {
	case ClientS, ClientE, ClientM:
		c.stats.Hits++
		return true
	case ClientI:
		c.stats.Misses++
		c.wantWrite = false
		c.sendToManager(coherence.OpItoS)
		c.moveTo(ClientIE)

		return false
	default:
		c.violation("GetRead", -1)
	}

	return false
}

// GetWrite asks for write permission. It returns true on a hit. A line in E
// becomes M without telling the manager.
func (c *Client) GetWrite() bool {
	switch c.state {
	case ClientM:
		c.stats.Hits++
		return true
	case ClientE:
		c.stats.Hits++
		c.moveTo(ClientM)

		return true
	case ClientS:
		c.stats.Misses++
		c.wantWrite = true
		c.sendToManager(coherence.OpItoE)
		c.moveTo(ClientSE)

		return false
	case ClientI:
		c.stats.Misses++
		c.wantWrite = true
		c.sendToManager(coherence.OpItoE)
		c.moveTo(ClientIE)

		return false
	default:
		c.violation("GetWrite", -1)
	}

	return false
}

// GetEvict gives up the line. A shared line is dropped silently; an
// exclusive line is handed back to the manager first.
func (c *Client) GetEvict() {
	c.stats.Evictions++

	switch c.state {
	case ClientS:
		c.becomeInvalid()
	case ClientE:
		c.sendToManager(coherence.OpEtoI)
		c.moveTo(ClientEI)
	case ClientM:
		c.sendToManager(coherence.OpMtoI)
		c.moveTo(ClientMI)
	default:
		c.violation("GetEvict", -1)
	}
}

// Process handles a protocol message addressed to the line.
func (c *Client) Process(msg *coherence.CohMsg) {
	c.stats.MsgsReceived++

	switch c.state {
	case ClientI:
		c.processInI(msg)
	case ClientIE:
		c.processInIE(msg)
	case ClientS:
		c.processInS(msg)
	case ClientSE:
		c.processInSE(msg)
	case ClientE, ClientM:
		c.processInOwned(msg, c.state == ClientM, false)
	case ClientEI, ClientMI:
		c.processInEvicting(msg)
	}
}

func (c *Client) processInI(msg *coherence.CohMsg) {
	if msg.Opcode != coherence.OpDemandI {
		c.violation(msg.Opcode.String(), msg.SrcID)
	}

	// A sharer that dropped the line silently is still on the directory.
	c.stats.Races++
	c.send(coherence.OpUnblockI, msg.SrcID, c.ports.Manager)
}

func (c *Client) processInIE(msg *coherence.CohMsg) {
	switch msg.Opcode {
	case coherence.OpGrantEData, coherence.OpCCEData:
		c.sendToManager(coherence.OpUnblockE)
		c.moveTo(ClientE)
	case coherence.OpCCMData:
		c.sendToManager(coherence.OpUnblockE)
		c.moveTo(ClientM)
	case coherence.OpGrantSData, coherence.OpCCSData:
		if c.wantWrite {
			c.violation(msg.Opcode.String(), msg.SrcID)
		}

		c.sendToManager(coherence.OpUnblockS)
		c.moveTo(ClientS)
	case coherence.OpDemandI:
		c.stats.Races++
		c.sendToManager(coherence.OpUnblockI)
	default:
		c.violation(msg.Opcode.String(), msg.SrcID)
	}
}

func (c *Client) processInS(msg *coherence.CohMsg) {
	if msg.Opcode != coherence.OpDemandI {
		c.violation(msg.Opcode.String(), msg.SrcID)
	}

	c.sendToManager(coherence.OpUnblockI)
	c.becomeInvalid()
}

func (c *Client) processInSE(msg *coherence.CohMsg) {
	switch msg.Opcode {
	case coherence.OpGrantEData:
		c.sendToManager(coherence.OpUnblockE)
		c.moveTo(ClientE)
	case coherence.OpDemandI:
		// Another upgrade won. Our copy is gone but the request stands.
		c.stats.Races++
		c.sendToManager(coherence.OpUnblockI)
		c.moveTo(ClientIE)
	default:
		c.violation(msg.Opcode.String(), msg.SrcID)
	}
}

// processInOwned handles the messages a line in E or M accepts. When
// evicting is set, the line is in EI or MI and always ends in I.
func (c *Client) processInOwned(
	msg *coherence.CohMsg,
	dirty bool,
	evicting bool,
) {
	switch msg.Opcode {
	case coherence.OpFwdE:
		if dirty {
			c.sendToPeer(coherence.OpCCMData, msg.ForwardID)
		} else {
			c.sendToPeer(coherence.OpCCEData, msg.ForwardID)
		}

		c.becomeInvalid()
	case coherence.OpFwdS:
		c.sendToPeer(coherence.OpCCSData, msg.ForwardID)

		if dirty {
			c.stats.Writebacks++
			c.sendToManager(coherence.OpWriteback)
		} else {
			c.sendToManager(coherence.OpClean)
		}

		if evicting {
			c.becomeInvalid()
		} else {
			c.moveTo(ClientS)
		}
	case coherence.OpDemandI:
		if dirty {
			c.stats.Writebacks++
			c.sendToManager(coherence.OpUnblockIDirty)
		} else {
			c.sendToManager(coherence.OpUnblockI)
		}

		c.becomeInvalid()
	default:
		c.violation(msg.Opcode.String(), msg.SrcID)
	}
}

func (c *Client) processInEvicting(msg *coherence.CohMsg) {
	dirty := c.state == ClientMI

	if msg.Opcode == coherence.OpGrantI {
		if dirty {
			c.stats.Writebacks++
			c.sendToManager(coherence.OpUnblockIDirty)
		} else {
			c.sendToManager(coherence.OpUnblockI)
		}

		c.becomeInvalid()

		return
	}

	// The manager sent this before it saw our eviction. Serve it as the
	// owner we were; the manager drops the eviction when it arrives.
	c.stats.Races++
	c.processInOwned(msg, dirty, true)
}

func (c *Client) becomeInvalid() {
	c.wantWrite = false
	c.moveTo(ClientI)
	c.transport.Invalidate()
}

func (c *Client) moveTo(s ClientState) {
	if c.state != s {
		c.stats.Transitions++
	}

	c.state = s
}

func (c *Client) sendToManager(op coherence.Opcode) {
	c.send(op, c.managerID, c.ports.Manager)
}

func (c *Client) sendToPeer(op coherence.Opcode, peer int) {
	c.send(op, peer, c.ports.Client)
}

func (c *Client) send(op coherence.Opcode, dst int, dstPort uint8) {
	c.stats.MsgsSent++
	c.transport.Send(&coherence.CohMsg{
		Kind:      coherence.KindOf(op),
		Opcode:    op,
		Addr:      c.addr,
		ForwardID: coherence.NoForward,
		SrcID:     c.id,
		SrcPort:   c.ports.Client,
		DstID:     dst,
		DstPort:   dstPort,
	})
}

func (c *Client) violation(event string, src int) {
	panic(&ProtocolViolation{
		Role:  "client",
		ID:    c.id,
		State: c.state.String(),
		Event: event,
		Addr:  c.addr,
		Src:   src,
	})
}
