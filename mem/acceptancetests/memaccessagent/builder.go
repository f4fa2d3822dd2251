package memaccessagent

import (
	"log"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// Builder can build MemAccessAgents.
type Builder struct {
	engine      sim.Engine
	maxAddress  uint64
	writeLeft   int
	readLeft    int
	maxInflight int
	seed        int64
	script      []Access
	lowModule   sim.Port
	logger      *logrus.Logger
}

// MakeBuilder creates a builder for an agent that issues 1000 random loads
// and 1000 random stores.
func MakeBuilder() Builder {
	return Builder{
		maxAddress:  1024 * 1024,
		writeLeft:   1000,
		readLeft:    1000,
		maxInflight: 4,
		seed:        1,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithMaxAddress sets the end of the address range to access.
func (b Builder) WithMaxAddress(addr uint64) Builder {
	b.maxAddress = addr
	return b
}

// WithWriteLeft sets the number of random stores.
func (b Builder) WithWriteLeft(write int) Builder {
	b.writeLeft = write
	return b
}

// WithReadLeft sets the number of random loads.
func (b Builder) WithReadLeft(read int) Builder {
	b.readLeft = read
	return b
}

// WithMaxInflight sets how many requests may wait for a response.
func (b Builder) WithMaxInflight(n int) Builder {
	b.maxInflight = n
	return b
}

// WithSeed sets the seed of the random accesses.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithScript makes the agent issue the given accesses in order instead of
// random ones.
func (b Builder) WithScript(script ...Access) Builder {
	b.script = script
	return b
}

// WithLowModule sets the port of the cache to send requests to.
func (b Builder) WithLowModule(port sim.Port) Builder {
	b.lowModule = port
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the agent.
func (b Builder) Build(name string) *MemAccessAgent {
	if b.engine == nil {
		log.Panic("engine is not set")
	}

	if b.maxInflight <= 0 {
		log.Panic("an agent must allow at least one request in flight")
	}

	a := new(MemAccessAgent)
	a.TickingComponent = sim.NewTickingComponent(name, b.engine, a)

	a.memPort = sim.NewPort(a, b.maxInflight, name+".Mem")
	a.AddPort("Mem", a.memPort)

	a.LowModule = b.lowModule
	a.MaxAddress = b.maxAddress
	a.MaxInflight = b.maxInflight
	a.Script = append([]Access(nil), b.script...)

	if len(a.Script) == 0 {
		a.ReadLeft = b.readLeft
		a.WriteLeft = b.writeLeft
	}

	a.PendingReq = make(map[string]*coherence.CacheReq)
	a.issueTime = make(map[string]sim.VTimeInCycle)
	a.rand = rand.New(rand.NewSource(b.seed))

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	a.logger = logger.WithField("agent", name)

	return a
}
