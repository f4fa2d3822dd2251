package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/mesisim/platform"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <" + strings.Join(platform.ScenarioNames(), "|") + ">",
	Short: "Run one of the built-in protocol scenarios.",
	Long:  scenarioHelp(),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, ok := platform.LookupScenario(strings.ToLower(args[0]))
		if !ok {
			return fmt.Errorf("unknown scenario %q", args[0])
		}

		if !cmd.Flags().Changed("log") {
			logrus.SetLevel(logrus.DebugLevel)
		}

		p, err := platform.RunScenario(s, logrus.StandardLogger())
		if p != nil {
			p.ReportStats(os.Stdout)
		}

		if err != nil {
			return err
		}

		fmt.Printf("scenario %s passed: %s\n", s.Name, s.Summary)

		return nil
	},
}

func scenarioHelp() string {
	var b strings.Builder

	b.WriteString("Run a scripted scenario and check how it ends. " +
		"Logs at debug level unless --log is given.\n\n")

	for _, name := range platform.ScenarioNames() {
		s, _ := platform.LookupScenario(name)
		fmt.Fprintf(&b, "  %s  %s\n", s.Name, s.Summary)
	}

	return b.String()
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
