package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/mesisim/datarecording"
	"github.com/sarchlab/mesisim/monitoring"
	"github.com/sarchlab/mesisim/platform"
	"github.com/sarchlab/mesisim/sim"
	"github.com/sarchlab/mesisim/tracing"
)

type runOptions struct {
	configPath  string
	traceDB     string
	monitor     bool
	monitorPort int
	openBrowser bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a platform until every core has finished its accesses.",
	Long: `Run builds the platform described by --config, or the default ` +
		`two-core platform, lets every core issue its accesses and prints ` +
		`the counters of every component.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPlatform(runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.configPath, "config", "",
		"YAML file describing the platform")
	f.StringVar(&runOpts.traceDB, "trace-db", envOr("MESISIM_TRACE_DB", ""),
		"record request traces into this SQLite database")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the monitoring web page while running")
	f.IntVar(&runOpts.monitorPort, "monitor-port",
		envIntOr("MESISIM_MONITOR_PORT", 0),
		"port of the monitoring server, random if 0")
	f.BoolVar(&runOpts.openBrowser, "open-browser", false,
		"open the monitoring page in a browser")

	rootCmd.AddCommand(runCmd)
}

func runPlatform(o runOptions) error {
	cfg := platform.DefaultConfig()

	if o.configPath != "" {
		var err error

		cfg, err = platform.LoadConfig(o.configPath)
		if err != nil {
			return err
		}
	}

	p := platform.MakeBuilder().
		WithConfig(cfg).
		WithLogger(logrus.StandardLogger()).
		Build()

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		p.LogActivity(logrus.StandardLogger())
	}

	if o.traceDB != "" {
		tracer := tracing.NewDBTracer(p.Engine, datarecording.New(o.traceDB))
		p.CollectTrace(tracer)

		defer tracer.Terminate()
	}

	return run(p, o)
}

func run(p *platform.Platform, o runOptions) error {
	if o.monitor {
		startMonitor(p, o)
	}

	if err := p.Run(); err != nil {
		return err
	}

	p.ReportStats(os.Stdout)

	return nil
}

func startMonitor(p *platform.Platform, o runOptions) {
	m := monitoring.NewMonitor()
	if o.monitorPort != 0 {
		m = m.WithPortNumber(o.monitorPort)
	}

	m.RegisterEngine(p.Engine)

	for _, c := range p.Components() {
		m.RegisterComponent(c)
	}

	_, _, total := p.Progress()
	bar := m.CreateProgressBar("Accesses", total)

	p.Engine.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos != sim.HookPosAfterEvent || bar.Done() {
			return
		}

		finished, inflight, _ := p.Progress()
		bar.Update(finished, inflight)

		if bar.Done() {
			m.CompleteProgressBar(bar)
		}
	}))

	url := m.StartServer(o.openBrowser)
	fmt.Fprintf(os.Stderr, "monitoring at %s\n", url)
}
