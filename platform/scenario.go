package platform

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/acceptancetests/memaccessagent"
	"github.com/sarchlab/mesisim/mem/cache"
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// A Scenario is a small scripted run that drives the protocol through one
// situation and checks how it ended.
type Scenario struct {
	Name    string
	Summary string

	Configure func(c *Config)
	Scripts   [][]memaccessagent.Access
	Check     func(p *Platform, w *Watcher) error
}

// A Watcher samples the caches after every event of a run.
type Watcher struct {
	caches  []*cache.Comp
	blocked map[string]int
}

// NewWatcher starts sampling the caches of a platform.
func NewWatcher(p *Platform) *Watcher {
	w := &Watcher{
		caches:  p.Caches(),
		blocked: make(map[string]int),
	}
	p.Engine.AcceptHook(w)

	return w
}

// Func records packets that wait for a credit.
func (w *Watcher) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	for _, c := range w.caches {
		if c.Credits() == 0 && c.PendingOut() > w.blocked[c.Name()] {
			w.blocked[c.Name()] = c.PendingOut()
		}
	}
}

// PeakBlocked returns the most packets a cache ever held back with no
// credit left.
func (w *Watcher) PeakBlocked(c *cache.Comp) int {
	return w.blocked[c.Name()]
}

// raceLatency is long enough for a forward and an eviction to cross on
// the network.
const raceLatency sim.VTimeInCycle = 50

const (
	lineA uint64 = 0x1000
	lineB uint64 = 0x2040
	lineC uint64 = 0x3080
)

func loadAt(addr uint64) memaccessagent.Access {
	return memaccessagent.Access{Op: coherence.Load, Addr: addr}
}

func storeAt(addr uint64) memaccessagent.Access {
	return memaccessagent.Access{Op: coherence.Store, Addr: addr}
}

func expectState(c *cache.Comp, addr uint64, states ...string) error {
	got := StateOf(c, addr)
	for _, s := range states {
		if got == s {
			return nil
		}
	}

	return fmt.Errorf("%s: line %#x is %s, want one of %v",
		c.Name(), addr, got, states)
}

var scenarios = map[string]Scenario{
	"a": {
		Name:    "a",
		Summary: "clean miss: one core reads a line nobody holds",
		Configure: func(c *Config) {
			c.Cores = 1
			c.L2Slices = 1
		},
		Scripts: [][]memaccessagent.Access{{loadAt(lineA)}},
		Check: func(p *Platform, _ *Watcher) error {
			if err := expectState(p.L1s[0], lineA, "E"); err != nil {
				return err
			}

			if err := expectState(p.L2s[0], lineA, "E"); err != nil {
				return err
			}

			if n := p.Memory.Stats().Loads; n != 1 {
				return fmt.Errorf("memory served %d loads, want 1", n)
			}

			return nil
		},
	},
	"b": {
		Name:    "b",
		Summary: "upgrade race: two sharers write the same line",
		Configure: func(c *Config) {
			c.Cores = 2
			c.L2Slices = 1
			c.Agent.MaxInflight = 1
		},
		Scripts: [][]memaccessagent.Access{
			{loadAt(lineA), storeAt(lineA)},
			{loadAt(lineA), storeAt(lineA)},
		},
		Check: func(p *Platform, _ *Watcher) error {
			owners := 0

			for _, l1 := range p.L1s {
				if err := expectState(l1, lineA, "M", "I"); err != nil {
					return err
				}

				if StateOf(l1, lineA) == "M" {
					owners++
				}
			}

			if owners != 1 {
				return fmt.Errorf("%d caches own %#x, want 1", owners, lineA)
			}

			return expectState(p.L2s[0], lineA, "E")
		},
	},
	"c": {
		Name: "c",
		Summary: "eviction race: a dirty line is evicted while another " +
			"core asks for it",
		Configure: func(c *Config) {
			c.Cores = 2
			c.L2Slices = 1
			c.Agent.MaxInflight = 1
			c.L1.Size = c.L1.BlockSize
			c.L1.Assoc = 1
			c.Network.Latency = raceLatency
		},
		// Core 1 asks for A while core 0 is still being granted it. Core 0
		// evicts A about one network crossing after the grant, so the
		// forward for core 1 finds it in MI and the directory has to drop
		// the M_to_I.
		Scripts: [][]memaccessagent.Access{
			{
				storeAt(lineA),
				{Op: coherence.Load, Addr: lineB, NotBefore: 260},
			},
			{
				{Op: coherence.Load, Addr: lineA, NotBefore: 100},
			},
		},
		Check: func(p *Platform, _ *Watcher) error {
			if err := expectState(p.L1s[0], lineA, "I"); err != nil {
				return err
			}

			if err := expectState(p.L1s[0], lineB, "E"); err != nil {
				return err
			}

			if err := expectState(p.L1s[1], lineA, "S", "E"); err != nil {
				return err
			}

			if n := p.L1s[0].Stats().Evictions; n != 1 {
				return fmt.Errorf("%s evicted %d lines, want 1",
					p.L1s[0].Name(), n)
			}

			ignored := p.L2s[0].AutomataStats().Ignored
			races := p.L1s[0].AutomataStats().Races
			if ignored == 0 && races == 0 {
				return fmt.Errorf("no race: %s ignored nothing and %s "+
					"saw no forward while evicting",
					p.L2s[0].Name(), p.L1s[0].Name())
			}

			return nil
		},
	},
	"d": {
		Name:    "d",
		Summary: "MSHR exhaustion: two misses share a single MSHR slot",
		Configure: func(c *Config) {
			c.Cores = 1
			c.L2Slices = 1
			c.L1.MSHR = 1
			c.Agent.MaxInflight = 2
		},
		Scripts: [][]memaccessagent.Access{{loadAt(lineA), loadAt(lineB)}},
		Check: func(p *Platform, _ *Watcher) error {
			s := p.L1s[0].Stats()
			if n := s.StallCount(cache.MSHRStall); n != 1 {
				return fmt.Errorf("%d MSHR stalls, want 1", n)
			}

			if err := expectState(p.L1s[0], lineA, "E"); err != nil {
				return err
			}

			return expectState(p.L1s[0], lineB, "E")
		},
	},
	"e": {
		Name:    "e",
		Summary: "credit limit: a second miss waits for the only credit",
		Configure: func(c *Config) {
			c.Cores = 1
			c.L2Slices = 1
			c.L1.Credits = 1
			c.Agent.MaxInflight = 2
		},
		Scripts: [][]memaccessagent.Access{{loadAt(lineA), loadAt(lineB)}},
		Check: func(p *Platform, w *Watcher) error {
			l1 := p.L1s[0]
			if w.PeakBlocked(l1) == 0 {
				return fmt.Errorf("%s never waited for a credit", l1.Name())
			}

			if l1.Credits() != 1 || l1.PendingOut() != 0 {
				return fmt.Errorf("%s ended with %d credits and %d packets "+
					"pending", l1.Name(), l1.Credits(), l1.PendingOut())
			}

			return expectState(l1, lineB, "E")
		},
	},
}

// ScenarioNames lists the scenarios in order.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// LookupScenario returns a scenario by name.
func LookupScenario(name string) (Scenario, bool) {
	s, ok := scenarios[name]
	return s, ok
}

// RunScenario builds the platform of a scenario, runs it and checks the
// outcome.
func RunScenario(s Scenario, logger *logrus.Logger) (*Platform, error) {
	cfg := DefaultConfig()
	if s.Configure != nil {
		s.Configure(&cfg)
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := MakeBuilder().
		WithConfig(cfg).
		WithScripts(s.Scripts...).
		WithLogger(logger).
		Build()
	w := NewWatcher(p)

	if err := p.Run(); err != nil {
		return p, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	var addrs []uint64
	for _, script := range s.Scripts {
		for _, a := range script {
			addrs = append(addrs, a.Addr)
		}
	}

	if err := p.CheckCoherence(addrs...); err != nil {
		return p, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	if s.Check != nil {
		if err := s.Check(p, w); err != nil {
			return p, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}

	return p, nil
}
