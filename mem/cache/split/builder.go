package split

import (
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/cache"
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// A Node is what the Builder builds: the two caches of a node and the
// MuxDemux in front of them.
type Node struct {
	LLP *cache.Comp
	LLS *cache.Comp
	Mux *MuxDemux
}

// Builder can build split nodes.
type Builder struct {
	engine      sim.Engine
	id          int
	credits     int
	bufferSize  int
	creditDelay sim.VTimeInCycle
	ports       coherence.Ports
	types       coherence.MsgTypes
	nodes       *coherence.NodeMap
	llp, lls    cache.Builder
	logger      *logrus.Logger
}

// MakeBuilder creates a builder with default caches on both sides.
func MakeBuilder() Builder {
	return Builder{
		credits:     8,
		bufferSize:  64,
		creditDelay: 1,
		ports:       coherence.DefaultPorts,
		types:       coherence.DefaultMsgTypes,
		llp:         cache.MakeBuilder(),
		lls:         cache.MakeBuilder(),
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithID sets the node id shared by both caches.
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithCredits sets how many packets the node may have in flight.
func (b Builder) WithCredits(n int) Builder {
	b.credits = n
	return b
}

// WithNetworkBufferSize sets the capacity of the node's network port.
func (b Builder) WithNetworkBufferSize(n int) Builder {
	b.bufferSize = n
	return b
}

// WithCreditDelay sets how long the node takes to give back a credit for a
// packet it received.
func (b Builder) WithCreditDelay(d sim.VTimeInCycle) Builder {
	b.creditDelay = d
	return b
}

// WithPorts sets the unit ports.
func (b Builder) WithPorts(ports coherence.Ports) Builder {
	b.ports = ports
	return b
}

// WithMsgTypes sets the packet types.
func (b Builder) WithMsgTypes(types coherence.MsgTypes) Builder {
	b.types = types
	return b
}

// WithNodeMap sets the map from node ids to network ports.
func (b Builder) WithNodeMap(nodes *coherence.NodeMap) Builder {
	b.nodes = nodes
	return b
}

// WithLLP sets how the private cache is built. Its next level must map to
// the nodes holding the LLS slices.
func (b Builder) WithLLP(llp cache.Builder) Builder {
	b.llp = llp
	return b
}

// WithLLS sets how the shared slice is built. Its next level must map to
// the memory controllers.
func (b Builder) WithLLS(lls cache.Builder) Builder {
	b.lls = lls
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the node. The network port is named name+".Network".
func (b Builder) Build(name string) *Node {
	if b.engine == nil {
		log.Panic("engine is not set")
	}

	if b.nodes == nil {
		log.Panic("node map is not set")
	}

	if b.credits <= 0 {
		log.Panic("a node needs at least one network credit")
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	llp := b.side(b.llp, logger).BuildL1(name + ".LLP")
	lls := b.side(b.lls, logger).BuildL2(name + ".LLS")
	llp.SetLocalPeer(lls)
	lls.SetLocalPeer(llp)

	m := &MuxDemux{
		id:          b.id,
		ports:       b.ports,
		types:       b.types,
		logger:      logger.WithField("mux", name),
		creditDelay: b.creditDelay,
		llp:         llp,
		lls:         lls,
		credits:     b.credits,
		maxCredits:  b.credits,
	}
	m.TickingComponent = sim.NewTickingComponent(name+".Mux", b.engine, m)
	m.networkPort = sim.NewPort(m, b.bufferSize, name+".Network")
	m.AddPort("Network", m.networkPort)
	m.netIf = &coherence.NetworkInterface{
		ID:    b.id,
		Port:  m.networkPort,
		Nodes: b.nodes,
		Types: b.types,
	}

	llp.SetOutlet(side{mux: m})
	lls.SetOutlet(side{mux: m, lls: true})

	return &Node{LLP: llp, LLS: lls, Mux: m}
}

func (b Builder) side(cb cache.Builder, logger *logrus.Logger) cache.Builder {
	return cb.
		WithEngine(b.engine).
		WithID(b.id).
		WithPorts(b.ports).
		WithMsgTypes(b.types).
		WithLogger(logger).
		WithoutNetworkPort()
}
