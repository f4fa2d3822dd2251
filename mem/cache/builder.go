package cache

import (
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/cache/store"
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/mem/coherence/mesi"
	"github.com/sarchlab/mesisim/sim"
)

// Builder can build caches.
type Builder struct {
	engine   sim.Engine
	id       int
	settings store.Settings
	mshrSize int
	credits  int

	ports     coherence.Ports
	types     coherence.MsgTypes
	nodes     *coherence.NodeMap
	nextLevel AddressMapper
	noNetwork bool

	topBufferSize     int
	networkBufferSize int

	logger *logrus.Logger
}

// MakeBuilder creates a new builder with a 16 KB, 4-way cache of 64-byte
// lines.
func MakeBuilder() Builder {
	return Builder{
		settings: store.Settings{
			Size:        16 * 1024,
			Assoc:       4,
			BlockSize:   64,
			HitTime:     1,
			LookupTime:  1,
			Replacement: store.LRU,
		},
		mshrSize:          16,
		credits:           8,
		ports:             coherence.DefaultPorts,
		types:             coherence.DefaultMsgTypes,
		topBufferSize:     16,
		networkBufferSize: 64,
	}
}

// WithEngine sets the engine of the builder.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithID sets the node id of the cache.
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithSettings sets the geometry and timing of the data array.
func (b Builder) WithSettings(settings store.Settings) Builder {
	b.settings = settings
	return b
}

// WithMSHRSize sets the number of MSHR slots.
func (b Builder) WithMSHRSize(n int) Builder {
	b.mshrSize = n
	return b
}

// WithCredits sets the number of packets the cache may have in flight
// towards the network.
func (b Builder) WithCredits(n int) Builder {
	b.credits = n
	return b
}

// WithPorts sets the unit ports used on the network.
func (b Builder) WithPorts(ports coherence.Ports) Builder {
	b.ports = ports
	return b
}

// WithMsgTypes sets the packet types used on the network.
func (b Builder) WithMsgTypes(types coherence.MsgTypes) Builder {
	b.types = types
	return b
}

// WithNodeMap sets the map from node ids to network ports.
func (b Builder) WithNodeMap(nodes *coherence.NodeMap) Builder {
	b.nodes = nodes
	return b
}

// WithNextLevel sets where lines come from: the directories for an L1,
// the memory controllers for an L2.
func (b Builder) WithNextLevel(m AddressMapper) Builder {
	b.nextLevel = m
	return b
}

// WithoutNetworkPort builds a cache that reaches the network through an
// outlet set later, such as a MuxDemux.
func (b Builder) WithoutNetworkPort() Builder {
	b.noNetwork = true
	return b
}

// WithTopBufferSize sets the capacity of the processor-side port.
func (b Builder) WithTopBufferSize(n int) Builder {
	b.topBufferSize = n
	return b
}

// WithNetworkBufferSize sets the capacity of the network-side port.
func (b Builder) WithNetworkBufferSize(n int) Builder {
	b.networkBufferSize = n
	return b
}

// WithLogger sets the logger. The standard logger is used by default.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// BuildL1 builds a private cache that runs client automata.
func (b Builder) BuildL1(name string) *Comp {
	c := b.build(name)

	r := &l1Role{
		comp:     c,
		clients:  make([]*mesi.Client, c.store.Capacity()),
		managers: b.nextLevel,
	}
	for i := range r.clients {
		r.clients[i] = mesi.NewClient(b.id, b.ports,
			&lineTransport{comp: c, idx: i})
	}
	r.stray = mesi.NewClient(b.id, b.ports, &lineTransport{comp: c, idx: -1})
	c.role = r

	c.topPort = sim.NewPort(c, b.topBufferSize, name+".Top")
	c.AddPort("Top", c.topPort)

	return c
}

// BuildL2 builds a shared cache that runs manager automata.
func (b Builder) BuildL2(name string) *Comp {
	c := b.build(name)

	r := &l2Role{
		comp:     c,
		managers: make([]*mesi.Manager, c.store.Capacity()),
		fetching: make([]bool, c.store.Capacity()),
		memory:   b.nextLevel,
	}
	for i := range r.managers {
		r.managers[i] = mesi.NewManager(b.id, b.ports,
			&lineTransport{comp: c, idx: i}, c.logger)
	}
	c.role = r

	return c
}

func (b Builder) build(name string) *Comp {
	b.mustBeComplete()

	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, c)
	c.id = b.id
	c.ports = b.ports
	c.types = b.types

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c.logger = logger.WithField("cache", name)

	settings := b.settings
	settings.Name = name + ".Store"
	c.store = store.New(settings)
	c.mshr = store.NewMSHR(name+".MSHR", b.mshrSize, settings.BlockSize)
	c.sender = newCreditedSender(name+".Out", b.credits)

	c.active = make([]*Request, c.store.Capacity())
	c.evictWaiter = make([]*Request, c.store.Capacity())
	c.invalidated = make([]bool, c.store.Capacity())

	if !b.noNetwork {
		c.networkPort = sim.NewPort(c, b.networkBufferSize, name+".Network")
		c.AddPort("Network", c.networkPort)
		c.netIf = &coherence.NetworkInterface{
			ID:    b.id,
			Port:  c.networkPort,
			Nodes: b.nodes,
			Types: b.types,
		}
		c.outlet = c.netIf
	}

	return c
}

func (b Builder) mustBeComplete() {
	if b.engine == nil {
		log.Panic("engine is not set")
	}

	if b.nextLevel == nil {
		log.Panic("next level is not set")
	}

	if !b.noNetwork && b.nodes == nil {
		log.Panic("node map is not set")
	}

	if err := b.types.Validate(); err != nil {
		log.Panic(err)
	}
}
