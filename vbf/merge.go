package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deoache/susy-vbf/record"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var mergeCmd = &cobra.Command{
	Use:   "merge <record>...",
	Short: "Merge the partition records of one dataset",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}

		rec, err := record.MergeFiles(args...)
		if err != nil {
			return err
		}
		if err := record.WriteFile(output, rec); err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"dataset": rec.Dataset,
			"records": len(args),
			"output":  output,
		}).Info("Merged records")
		return nil
	},
}

func init() {
	mergeCmd.Flags().String("output", "merged.yaml", "merged record file")
	rootCmd.AddCommand(mergeCmd)
}
