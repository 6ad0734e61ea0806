package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deoache/susy-vbf/config"
	"github.com/deoache/susy-vbf/dataset"
	"github.com/deoache/susy-vbf/observability"
	"github.com/deoache/susy-vbf/processor"
	"github.com/deoache/susy-vbf/record"
	"github.com/deoache/susy-vbf/runner"
)

//nolint:gochecknoglobals // Cobra flags
var runFlags struct {
	config      string
	datasets    string
	fileset     string
	dataset     string
	partition   int
	output      string
	metricsAddr string
	systematics bool
}

//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one dataset (or one partition of it) into a record",
	Long: `Processes the files of a dataset with the analysis described by
--config and writes the result record. With --partition only the i-th
partition of the dataset's files is processed and the record is named
after the partition key.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.config, "config", "processor.yaml", "processor config file")
	f.StringVar(&runFlags.datasets, "datasets", "datasets", "directory of dataset configs")
	f.StringVar(&runFlags.fileset, "fileset", "fileset.json", "fileset JSON mapping dataset names to files")
	f.StringVar(&runFlags.dataset, "dataset", "", "dataset to process")
	f.IntVar(&runFlags.partition, "partition", 0, "partition to process, counting from 1 (0 processes every file)")
	f.StringVar(&runFlags.output, "output", ".", "output directory")
	f.StringVar(&runFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&runFlags.systematics, "systematics", false, "enable shift systematics (overrides the config)")
	_ = runCmd.MarkFlagRequired("dataset")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(runFlags.config)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("systematics") {
		cfg.Systematics = runFlags.systematics
	}

	catalog, err := dataset.LoadCatalog(runFlags.datasets)
	if err != nil {
		return err
	}
	ds, err := catalog.Get(cfg.Year, runFlags.dataset)
	if err != nil {
		return err
	}
	fileset, err := dataset.LoadFileset(runFlags.fileset)
	if err != nil {
		return err
	}
	files, err := fileset.Files(ds.Name)
	if err != nil {
		return err
	}

	key := ds.Name
	if runFlags.partition > 0 {
		parts := dataset.Partitions(ds.Name, files, ds.FilesPerPartition(len(files)))
		if runFlags.partition > len(parts) {
			return fmt.Errorf("dataset %s has %d partitions, got --partition %d", ds.Name, len(parts), runFlags.partition)
		}
		part := parts[runFlags.partition-1]
		key, files = part.Key, part.Files
	}

	log := logger.WithFields(logrus.Fields{"dataset": ds.Name, "key": key})

	if runFlags.metricsAddr != "" {
		observability.StartMetricsServer(runFlags.metricsAddr, log)
		defer func() {
			if err := observability.StopMetricsServer(); err != nil {
				log.WithError(err).Warn("Failed to stop metrics server")
			}
		}()
	}

	proc, err := processor.New(cfg.Config, nil, logger)
	if err != nil {
		return err
	}
	proc.OnFill = func(f processor.Fill) {
		observability.RecordFill(ds.Name, f.Shift)
	}

	sample, err := cfg.Sample(ds.IsMC)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{"files": len(files), "is_mc": ds.IsMC, "systematics": cfg.Systematics}).Info("Starting run")

	res, err := runner.New(cfg.Runner, cfg.Reader, proc, logger).Run(ctx, runner.Job{
		Dataset: ds.Name,
		Year:    cfg.Year,
		Files:   files,
		Sample:  sample,
	})
	if err != nil {
		return err
	}

	rec, err := record.FromResult(ds.Name, cfg.Year, ds.IsMC, res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(runFlags.output, 0o755); err != nil {
		return err
	}
	path := filepath.Join(runFlags.output, key+".yaml")
	if err := record.WriteFile(path, rec); err != nil {
		return err
	}

	log.WithField("output", path).Info("Wrote record")
	return nil
}
