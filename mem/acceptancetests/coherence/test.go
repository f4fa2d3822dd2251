// Command coherence stresses a whole platform with random traffic and
// checks that every access completes.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/platform"
)

var seedFlag = flag.Int64("seed", 0, "Random Seed")
var numAccessFlag = flag.Int("num-access", 10000,
	"Number of reads and of writes each core generates")
var maxAddressFlag = flag.Uint64("max-address", 1048576, "Address range to use")
var coresFlag = flag.Int("cores", 4, "Number of cores")
var splitFlag = flag.Bool("split", false, "Use split LLP/LLS nodes")
var tinyFlag = flag.Bool("tiny", false,
	"Use tiny caches so that evictions are frequent")

func main() {
	flag.Parse()

	cfg := buildConfig()
	p := platform.MakeBuilder().WithConfig(cfg).Build()

	if err := p.Run(); err != nil {
		logrus.Fatal(err)
	}

	p.ReportStats(os.Stdout)
}

func buildConfig() platform.Config {
	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	fmt.Fprintf(os.Stderr, "Seed %d\n", seed)

	cfg := platform.DefaultConfig()
	cfg.Cores = *coresFlag
	cfg.Split = *splitFlag
	cfg.Agent.Seed = seed
	cfg.Agent.Reads = *numAccessFlag
	cfg.Agent.Writes = *numAccessFlag
	cfg.Agent.MaxAddress = *maxAddressFlag

	if *tinyFlag {
		cfg.L1.Size = 1024
		cfg.L1.Assoc = 2
		cfg.L1.MSHR = 4
		cfg.L2.Size = 4096
		cfg.L2.Assoc = 4
		cfg.L2.MSHR = 8
	}

	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}

	return cfg
}
