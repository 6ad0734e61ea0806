// Command vbf runs the analysis over datasets, merges and exports the
// resulting records and computes uncertainty bands from them.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	logger   *logrus.Logger
	profiler interface{ Stop() }
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "vbf",
	Short: "Systematics-aware event processing for the SUSY VBF analysis",
	Long: `vbf selects events from NanoAOD-style or proio files, fills histograms
for every category and systematic variation, and turns the merged results
into normalised stacks and uncertainty bands.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().String("profile", "", "write a profile to the working directory (cpu, mem, trace)")

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func setup(cmd *cobra.Command, _ []string) error {
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	mode, err := cmd.Flags().GetString("profile")
	if err != nil {
		return err
	}
	switch mode {
	case "":
	case "cpu":
		profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	case "mem":
		profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	case "trace":
		profiler = profile.Start(profile.TraceProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	default:
		return fmt.Errorf("unknown profile %q (want cpu, mem or trace)", mode)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if profiler != nil {
		profiler.Stop()
		logger.Info("Profile written")
	}
	return nil
}
