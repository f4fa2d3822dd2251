package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mesisim/mem/coherence/mesi"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "mesisim",
	Short: "mesisim simulates multiprocessor caches kept coherent by MESI.",
	Long: `mesisim simulates multiprocessor memory hierarchies whose caches ` +
		`are kept coherent by a directory-based MESI protocol. It can run ` +
		`a platform described in YAML or one of the built-in scenarios.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		logrus.SetLevel(level)

		return nil
	},
}

func init() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log",
		envOr("MESISIM_LOG_LEVEL", "info"),
		"log level (panic, fatal, error, warn, info, debug, trace)")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

func envIntOr(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}

	return n
}

// Execute runs the command line. A protocol violation ends the program with
// a failure after the recorders are flushed.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			if v, ok := r.(*mesi.ProtocolViolation); ok {
				logrus.WithError(v).Error("protocol violation")
				atexit.Exit(2)
			}

			panic(r)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
