package platform

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/acceptancetests/memaccessagent"
	"github.com/sarchlab/mesisim/mem/cache"
	"github.com/sarchlab/mesisim/mem/cache/split"
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/mem/idealmemcontroller"
	"github.com/sarchlab/mesisim/sim"
	"github.com/sarchlab/mesisim/tracing"
)

// A Platform is a system ready to run.
type Platform struct {
	Engine  *sim.SerialEngine
	Agents  []*memaccessagent.MemAccessAgent
	L1s     []*cache.Comp
	L2s     []*cache.Comp
	Muxes   []*split.MuxDemux
	Memory  *idealmemcontroller.Comp
	Network *sim.DirectConnection
	Bus     *sim.DirectConnection

	components []sim.Component
	steps      *tracing.StepCountTracer
}

// Components returns every component of the platform.
func (p *Platform) Components() []sim.Component {
	return p.components
}

// Caches returns the L1s followed by the L2s.
func (p *Platform) Caches() []*cache.Comp {
	caches := make([]*cache.Comp, 0, len(p.L1s)+len(p.L2s))
	caches = append(caches, p.L1s...)

	return append(caches, p.L2s...)
}

// Run starts the agents and runs the engine until nothing is left to do. It
// fails if an access never completed.
func (p *Platform) Run() error {
	for _, a := range p.Agents {
		a.TickLater()
	}

	if err := p.Engine.Run(); err != nil {
		return err
	}

	p.Engine.Finished()

	for _, a := range p.Agents {
		if !a.AllCompleted() {
			return fmt.Errorf("%s stopped with %d accesses in flight at "+
				"cycle %d", a.Name(), len(a.PendingReq),
				p.Engine.CurrentTime())
		}
	}

	return nil
}

// Progress returns how many accesses have completed, how many are in flight
// and how many the cores issue in total.
func (p *Platform) Progress() (finished, inflight, total uint64) {
	for _, a := range p.Agents {
		finished += a.Completed
		inflight += uint64(len(a.PendingReq))
		total += a.Completed + uint64(len(a.PendingReq)) +
			uint64(a.ReadLeft+a.WriteLeft+len(a.Script))
	}

	return finished, inflight, total
}

// CollectTrace makes every cache report its requests to a tracer.
func (p *Platform) CollectTrace(t tracing.Tracer) {
	for _, c := range p.Caches() {
		tracing.CollectTrace(c, t)
	}
}

// Steps counts the stall reasons the caches record, per reason.
func (p *Platform) Steps() *tracing.StepCountTracer {
	return p.steps
}

// LogActivity writes every event and every message crossing a port into
// the logger at trace level.
func (p *Platform) LogActivity(logger logrus.FieldLogger) {
	p.Engine.AcceptHook(sim.NewEventLogger(logger))

	portLogger := sim.NewPortMsgLogger(logger)
	for _, c := range p.components {
		for _, port := range c.Ports() {
			port.AcceptHook(portLogger)
		}
	}
}

// ReportStats writes the counters of every component.
func (p *Platform) ReportStats(w io.Writer) {
	fmt.Fprintf(w, "cycles %d\n", p.Engine.CurrentTime())

	for _, a := range p.Agents {
		a.ReportStats(w)
	}

	for _, c := range p.Caches() {
		c.ReportStats(w)
	}

	for _, m := range p.Muxes {
		m.ReportStats(w)
	}

	p.Memory.ReportStats(w)

	names := p.steps.GetStepNames()
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "steps.%s %d\n", name, p.steps.GetStepCount(name))
		fmt.Fprintf(w, "steps.%s.tasks %d\n", name, p.steps.GetTaskCount(name))
	}
}

// Builder can build platforms.
type Builder struct {
	config  Config
	scripts [][]memaccessagent.Access
	logger  *logrus.Logger
}

// MakeBuilder creates a builder for the default config.
func MakeBuilder() Builder {
	return Builder{config: DefaultConfig()}
}

// WithConfig sets the config.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithScripts makes core i issue scripts[i] instead of random accesses.
func (b Builder) WithScripts(scripts ...[]memaccessagent.Access) Builder {
	b.scripts = scripts
	return b
}

// WithLogger sets the logger of every component.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the platform.
func (b Builder) Build() *Platform {
	if err := b.config.Validate(); err != nil {
		log.Panic(err)
	}

	if b.logger == nil {
		b.logger = logrus.StandardLogger()
	}

	p := &Platform{Engine: sim.NewSerialEngine()}

	p.Network = sim.MakeDirectConnectionBuilder().
		WithEngine(p.Engine).
		WithLatency(b.config.Network.Latency).
		Build("Network")
	p.Bus = sim.MakeDirectConnectionBuilder().
		WithEngine(p.Engine).
		WithLatency(1).
		Build("Bus")

	if b.config.Split {
		b.buildSplit(p)
	} else {
		b.buildPrivate(p)
	}

	b.buildAgents(p)

	p.steps = tracing.NewStepCountTracer(tracing.AllTasks)
	p.CollectTrace(p.steps)

	return p
}

// buildPrivate builds an L1 per core and separate L2 slices. Core i is node
// i, slice j is node cores+j and the memory controller comes last.
func (b Builder) buildPrivate(p *Platform) {
	cfg := b.config
	nodes := coherence.NewNodeMap()
	memID := cfg.Cores + cfg.L2Slices

	sliceIDs := make([]int, cfg.L2Slices)
	for j := range sliceIDs {
		sliceIDs[j] = cfg.Cores + j
	}

	bufferSize := b.networkBufferSize()

	for i := 0; i < cfg.Cores; i++ {
		l1 := b.cacheBuilder(p.Engine, cfg.L1, i, nodes, bufferSize).
			WithNextLevel(cache.NewInterleaved(cfg.Interleaving, sliceIDs...)).
			WithTopBufferSize(b.topBufferSize()).
			BuildL1(fmt.Sprintf("L1[%d]", i))
		b.attach(p, nodes, i, l1.GetPortByName("Network"))
		p.L1s = append(p.L1s, l1)
		p.components = append(p.components, l1)
	}

	for j, id := range sliceIDs {
		l2 := b.cacheBuilder(p.Engine, cfg.L2, id, nodes, bufferSize).
			WithNextLevel(&cache.SingleTarget{Target: memID}).
			BuildL2(fmt.Sprintf("L2[%d]", j))
		b.attach(p, nodes, id, l2.GetPortByName("Network"))
		p.L2s = append(p.L2s, l2)
		p.components = append(p.components, l2)
	}

	b.buildMemory(p, nodes, memID, bufferSize)
}

// buildSplit builds one node per core, each with an LLP, an LLS and a
// MuxDemux. The memory controller is the last node.
func (b Builder) buildSplit(p *Platform) {
	cfg := b.config
	nodes := coherence.NewNodeMap()
	memID := cfg.Cores

	homeIDs := make([]int, cfg.Cores)
	for i := range homeIDs {
		homeIDs[i] = i
	}

	bufferSize := b.networkBufferSize()

	for i := 0; i < cfg.Cores; i++ {
		node := split.MakeBuilder().
			WithEngine(p.Engine).
			WithID(i).
			WithCredits(cfg.Network.Credits).
			WithNetworkBufferSize(bufferSize).
			WithCreditDelay(cfg.L2.LookupTime).
			WithPorts(cfg.Ports).
			WithMsgTypes(cfg.MsgTypes).
			WithNodeMap(nodes).
			WithLogger(b.logger).
			WithLLP(cache.MakeBuilder().
				WithSettings(cfg.L1.Settings).
				WithMSHRSize(cfg.L1.MSHR).
				WithCredits(cfg.L1.Credits).
				WithTopBufferSize(b.topBufferSize()).
				WithNextLevel(cache.NewInterleaved(cfg.Interleaving, homeIDs...))).
			WithLLS(cache.MakeBuilder().
				WithSettings(cfg.L2.Settings).
				WithMSHRSize(cfg.L2.MSHR).
				WithCredits(cfg.L2.Credits).
				WithNextLevel(&cache.SingleTarget{Target: memID})).
			Build(fmt.Sprintf("Node[%d]", i))

		b.attach(p, nodes, i, node.Mux.Port())
		p.L1s = append(p.L1s, node.LLP)
		p.L2s = append(p.L2s, node.LLS)
		p.Muxes = append(p.Muxes, node.Mux)
		p.components = append(p.components, node.LLP, node.LLS, node.Mux)
	}

	b.buildMemory(p, nodes, memID, bufferSize)
}

// networkBufferSize makes every network port large enough to take all the
// packets that can be in flight at once, credits included.
func (b Builder) networkBufferSize() int {
	cfg := b.config

	total := cfg.Memory.Credits
	if cfg.Split {
		total += cfg.Cores * cfg.Network.Credits
	} else {
		total += cfg.Cores*cfg.L1.Credits + cfg.L2Slices*cfg.L2.Credits
	}

	return 2 * total
}

// topBufferSize lets an L1 take every access its core can have in flight.
func (b Builder) topBufferSize() int {
	return max(16, b.config.Agent.MaxInflight)
}

func (b Builder) cacheBuilder(
	engine sim.Engine,
	cc CacheConfig,
	id int,
	nodes *coherence.NodeMap,
	bufferSize int,
) cache.Builder {
	return cache.MakeBuilder().
		WithEngine(engine).
		WithID(id).
		WithSettings(cc.Settings).
		WithMSHRSize(cc.MSHR).
		WithCredits(cc.Credits).
		WithPorts(b.config.Ports).
		WithMsgTypes(b.config.MsgTypes).
		WithNodeMap(nodes).
		WithNetworkBufferSize(bufferSize).
		WithLogger(b.logger)
}

func (b Builder) buildMemory(
	p *Platform,
	nodes *coherence.NodeMap,
	id int,
	bufferSize int,
) {
	cfg := b.config

	p.Memory = idealmemcontroller.MakeBuilder().
		WithEngine(p.Engine).
		WithID(id).
		WithLatency(cfg.Memory.Latency).
		WithWidth(cfg.Memory.Width).
		WithCredits(cfg.Memory.Credits).
		WithNetworkBufferSize(bufferSize).
		WithPorts(cfg.Ports).
		WithMsgTypes(cfg.MsgTypes).
		WithNodeMap(nodes).
		WithLogger(b.logger).
		Build("Memory")

	b.attach(p, nodes, id, p.Memory.Port())
	p.components = append(p.components, p.Memory)
}

func (b Builder) attach(
	p *Platform,
	nodes *coherence.NodeMap,
	id int,
	port sim.Port,
) {
	nodes.Add(id, port.AsRemote())
	p.Network.PlugIn(port)
}

func (b Builder) buildAgents(p *Platform) {
	cfg := b.config

	for i, l1 := range p.L1s {
		top := l1.GetPortByName("Top")

		ab := memaccessagent.MakeBuilder().
			WithEngine(p.Engine).
			WithLowModule(top).
			WithMaxAddress(cfg.Agent.MaxAddress).
			WithReadLeft(cfg.Agent.Reads).
			WithWriteLeft(cfg.Agent.Writes).
			WithMaxInflight(cfg.Agent.MaxInflight).
			WithSeed(cfg.Agent.Seed + int64(i)).
			WithLogger(b.logger)

		if i < len(b.scripts) {
			ab = ab.WithScript(b.scripts[i]...)
		} else if len(b.scripts) > 0 {
			ab = ab.WithReadLeft(0).WithWriteLeft(0)
		}

		agent := ab.Build(fmt.Sprintf("Agent[%d]", i))
		p.Bus.PlugIn(agent.GetPortByName("Mem"))
		p.Bus.PlugIn(top)

		p.Agents = append(p.Agents, agent)
		p.components = append(p.components, agent)
	}
}

// CheckCoherence verifies that every address has either a single writer or
// any number of readers among the first-level caches. Lines in transient
// states are not checked.
func (p *Platform) CheckCoherence(addrs ...uint64) error {
	for _, addr := range addrs {
		var owners, sharers []string

		for _, l1 := range p.L1s {
			a, ok := l1.Automaton(addr)
			if !ok || !a.IsStable() {
				continue
			}

			switch a.StateName() {
			case "E", "M":
				owners = append(owners, l1.Name())
			case "S":
				sharers = append(sharers, l1.Name())
			}
		}

		if len(owners) > 1 || (len(owners) == 1 && len(sharers) > 0) {
			return fmt.Errorf("address %#x: owners %v, sharers %v",
				addr, owners, sharers)
		}
	}

	return nil
}

// StateOf returns the state of a line in a cache, or "I" if the cache does
// not hold it.
func StateOf(c *cache.Comp, addr uint64) string {
	a, ok := c.Automaton(addr)
	if !ok {
		return "I"
	}

	return a.StateName()
}
