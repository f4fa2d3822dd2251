package idealmemcontroller

import (
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// Builder can build ideal memory controllers.
type Builder struct {
	engine     sim.Engine
	id         int
	latency    sim.VTimeInCycle
	width      int
	credits    int
	bufferSize int
	ports      coherence.Ports
	types      coherence.MsgTypes
	nodes      *coherence.NodeMap
	logger     *logrus.Logger
}

// MakeBuilder returns a new Builder
func MakeBuilder() Builder {
	return Builder{
		latency:    100,
		width:      1,
		credits:    8,
		bufferSize: 64,
		ports:      coherence.DefaultPorts,
		types:      coherence.DefaultMsgTypes,
	}
}

// WithEngine sets the engine of the memory controller
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithID sets the node id of the memory controller
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithLatency sets the latency of the memory controller
func (b Builder) WithLatency(latency sim.VTimeInCycle) Builder {
	b.latency = latency
	return b
}

// WithWidth sets the number of packets the memory controller takes in and
// sends out per cycle
func (b Builder) WithWidth(width int) Builder {
	b.width = width
	return b
}

// WithCredits sets how many replies may be in flight
func (b Builder) WithCredits(n int) Builder {
	b.credits = n
	return b
}

// WithNetworkBufferSize sets the capacity of the network port
func (b Builder) WithNetworkBufferSize(n int) Builder {
	b.bufferSize = n
	return b
}

// WithPorts sets the unit ports
func (b Builder) WithPorts(ports coherence.Ports) Builder {
	b.ports = ports
	return b
}

// WithMsgTypes sets the packet types
func (b Builder) WithMsgTypes(types coherence.MsgTypes) Builder {
	b.types = types
	return b
}

// WithNodeMap sets the map from node ids to network ports
func (b Builder) WithNodeMap(nodes *coherence.NodeMap) Builder {
	b.nodes = nodes
	return b
}

// WithLogger sets the logger
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// Build builds a new Comp
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		log.Panic("engine is not set")
	}

	if b.nodes == nil {
		log.Panic("node map is not set")
	}

	if b.width <= 0 || b.credits <= 0 {
		log.Panic("width and credits must be positive")
	}

	c := &Comp{
		id:         b.id,
		ports:      b.ports,
		types:      b.types,
		Latency:    b.latency,
		width:      b.width,
		credits:    b.credits,
		maxCredits: b.credits,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, c)

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c.logger = logger.WithField("memory", name)

	c.networkPort = sim.NewPort(c, b.bufferSize, name+".Network")
	c.AddPort("Network", c.networkPort)
	c.netIf = &coherence.NetworkInterface{
		ID:    b.id,
		Port:  c.networkPort,
		Nodes: b.nodes,
		Types: b.types,
	}

	return c
}
