package coherence

import (
	"log"

	"github.com/sarchlab/mesisim/sim"
)

// NodeMap tells which port a node id is reached through.
type NodeMap struct {
	ports []sim.RemotePort
}

// NewNodeMap creates an empty NodeMap.
func NewNodeMap() *NodeMap {
	return &NodeMap{}
}

// Add registers the port of a node.
func (m *NodeMap) Add(id int, port sim.RemotePort) {
	if id < 0 {
		log.Panicf("invalid node id %d", id)
	}

	for len(m.ports) <= id {
		m.ports = append(m.ports, "")
	}

	if m.ports[id] != "" {
		log.Panicf("node %d already registered as %s", id, m.ports[id])
	}

	m.ports[id] = port
}

// PortOf returns the port of a node.
func (m *NodeMap) PortOf(id int) sim.RemotePort {
	if id < 0 || id >= len(m.ports) || m.ports[id] == "" {
		log.Panicf("node %d is not registered", id)
	}

	return m.ports[id]
}

// Len returns one more than the largest node id registered.
func (m *NodeMap) Len() int {
	return len(m.ports)
}

// NetworkInterface attaches a node to the network through a port.
type NetworkInterface struct {
	ID    int
	Port  sim.Port
	Nodes *NodeMap
	Types MsgTypes
}

// Send puts a packet on the network.
func (n *NetworkInterface) Send(pkt *NetworkPacket) {
	n.SendAfter(pkt, 0)
}

// SendAfter puts a packet on the network after a delay.
func (n *NetworkInterface) SendAfter(pkt *NetworkPacket, delay sim.VTimeInCycle) {
	pkt.Src = n.ID
	pkt.MsgMeta.Src = n.Port.AsRemote()
	pkt.MsgMeta.Dst = n.Nodes.PortOf(pkt.Dst)
	n.Port.SendAfter(pkt, delay)
}

// ReturnCredit sends a credit back to a node after a delay.
func (n *NetworkInterface) ReturnCredit(to int, delay sim.VTimeInCycle) {
	n.SendAfter(NewPacket(n.Types.Credit, n.ID, to, nil), delay)
}

// IsCredit tells if a packet is a credit.
func (n *NetworkInterface) IsCredit(pkt *NetworkPacket) bool {
	return pkt.Type == n.Types.Credit
}
