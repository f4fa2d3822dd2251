// Package platform assembles complete systems of cores, caches, a network
// and a memory controller.
package platform

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/mesisim/mem/cache/store"
	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// CacheConfig configures one level of caches.
type CacheConfig struct {
	store.Settings `yaml:",inline"`

	MSHR    int `yaml:"mshr"`
	Credits int `yaml:"credits"`
}

// MemoryConfig configures the memory controller.
type MemoryConfig struct {
	Latency sim.VTimeInCycle `yaml:"latency"`
	Width   int              `yaml:"width"`
	Credits int              `yaml:"credits"`
}

// NetworkConfig configures the network that connects the nodes.
type NetworkConfig struct {
	Latency sim.VTimeInCycle `yaml:"latency"`
	// Credits bounds the packets a node's MuxDemux may have in flight. Only
	// used by split systems.
	Credits int `yaml:"credits"`
}

// AgentConfig configures the traffic every core generates.
type AgentConfig struct {
	Reads       int    `yaml:"reads"`
	Writes      int    `yaml:"writes"`
	MaxAddress  uint64 `yaml:"max_address"`
	MaxInflight int    `yaml:"max_inflight"`
	Seed        int64  `yaml:"seed"`
}

// Config describes a whole system.
type Config struct {
	Cores int `yaml:"cores"`
	// Split places an LLP and an LLS on every core's node. L2Slices is
	// ignored then, as every node holds one slice.
	Split        bool   `yaml:"split"`
	L2Slices     int    `yaml:"l2_slices"`
	Interleaving uint64 `yaml:"interleaving"`

	L1      CacheConfig   `yaml:"l1"`
	L2      CacheConfig   `yaml:"l2"`
	Memory  MemoryConfig  `yaml:"memory"`
	Network NetworkConfig `yaml:"network"`
	Agent   AgentConfig   `yaml:"agent"`

	MsgTypes coherence.MsgTypes `yaml:"msg_types"`
	Ports    coherence.Ports    `yaml:"ports"`
}

// DefaultConfig returns a two-core system with private 16 KB L1s and two
// 256 KB L2 slices.
func DefaultConfig() Config {
	return Config{
		Cores:        2,
		L2Slices:     2,
		Interleaving: 4096,
		L1: CacheConfig{
			Settings: store.Settings{
				Size:        16 * 1024,
				Assoc:       4,
				BlockSize:   64,
				HitTime:     1,
				LookupTime:  1,
				Replacement: store.LRU,
			},
			MSHR:    16,
			Credits: 8,
		},
		L2: CacheConfig{
			Settings: store.Settings{
				Size:        256 * 1024,
				Assoc:       8,
				BlockSize:   64,
				HitTime:     4,
				LookupTime:  2,
				Replacement: store.LRU,
			},
			MSHR:    32,
			Credits: 16,
		},
		Memory: MemoryConfig{
			Latency: 100,
			Width:   1,
			Credits: 16,
		},
		Network: NetworkConfig{
			Latency: 2,
			Credits: 16,
		},
		Agent: AgentConfig{
			Reads:       1000,
			Writes:      1000,
			MaxAddress:  1024 * 1024,
			MaxInflight: 4,
			Seed:        1,
		},
		MsgTypes: coherence.DefaultMsgTypes,
		Ports:    coherence.DefaultPorts,
	}
}

// LoadConfig reads a YAML file. Keys the file leaves out keep their default
// values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses a YAML document on top of the default config.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks that a system can be built from the config.
func (c Config) Validate() error {
	if c.Cores <= 0 {
		return fmt.Errorf("config: need at least one core, got %d", c.Cores)
	}

	if !c.Split && c.L2Slices <= 0 {
		return fmt.Errorf("config: need at least one L2 slice, got %d",
			c.L2Slices)
	}

	for name, cc := range map[string]CacheConfig{"l1": c.L1, "l2": c.L2} {
		cc.Name = name
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		if cc.MSHR <= 0 || cc.Credits <= 0 {
			return fmt.Errorf("config: %s needs positive mshr and credits",
				name)
		}
	}

	if c.L1.BlockSize != c.L2.BlockSize {
		return fmt.Errorf("config: l1 block size %d differs from l2 block "+
			"size %d", c.L1.BlockSize, c.L2.BlockSize)
	}

	if c.Interleaving < c.L2.BlockSize || c.Interleaving%c.L2.BlockSize != 0 {
		return fmt.Errorf("config: interleaving %d must be a multiple of the "+
			"block size %d", c.Interleaving, c.L2.BlockSize)
	}

	if c.Memory.Width <= 0 || c.Memory.Credits <= 0 {
		return fmt.Errorf("config: memory needs positive width and credits")
	}

	if c.Network.Latency == 0 {
		return fmt.Errorf("config: network latency must be at least 1")
	}

	if c.Split && c.Network.Credits <= 0 {
		return fmt.Errorf("config: split nodes need positive network credits")
	}

	if c.Agent.MaxInflight <= 0 || c.Agent.MaxAddress < 4 {
		return fmt.Errorf("config: agent needs max_inflight > 0 and " +
			"max_address >= 4")
	}

	if err := c.MsgTypes.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	p := c.Ports
	if p.Client == p.Manager || p.Client == p.Memory || p.Manager == p.Memory {
		return fmt.Errorf("config: unit ports must be distinct, got %+v", p)
	}

	return nil
}
