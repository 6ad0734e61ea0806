package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/dataset"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "List the job partitions of the datasets of a year",
	Long: `Prints, as YAML, the partitions of every dataset of --year that the
fileset lists. Each entry is one "vbf run --partition" job.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		dir, _ := flags.GetString("datasets")
		filesetPath, _ := flags.GetString("fileset")
		year, _ := flags.GetString("year")
		only, _ := flags.GetStringSlice("dataset")

		catalog, err := dataset.LoadCatalog(dir)
		if err != nil {
			return err
		}
		fileset, err := dataset.LoadFileset(filesetPath)
		if err != nil {
			return err
		}

		names := only
		if len(names) == 0 {
			names = catalog.Names(year)
		}

		var out []dataset.Partition
		for _, name := range names {
			ds, err := catalog.Get(year, name)
			if err != nil {
				return err
			}
			files, err := fileset.Files(name)
			if err != nil {
				logger.WithError(err).WithField("dataset", name).Warn("Dataset missing from fileset, skipping")
				continue
			}
			out = append(out, dataset.Partitions(name, files, ds.FilesPerPartition(len(files)))...)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	f := partitionCmd.Flags()
	f.String("datasets", "datasets", "directory of dataset configs")
	f.String("fileset", "fileset.json", "fileset JSON mapping dataset names to files")
	f.String("year", "", "data-taking year")
	f.StringSlice("dataset", nil, "only these datasets")
	_ = partitionCmd.MarkFlagRequired("year")

	rootCmd.AddCommand(partitionCmd)
}
