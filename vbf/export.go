package main

import (
	"github.com/spf13/cobra"

	"github.com/deoache/susy-vbf/record"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var exportCmd = &cobra.Command{
	Use:   "export <record>",
	Short: "Write the histograms of a record to a ROOT file",
	Long: `Writes every filled cell of a record as a TH1D keyed
<histogram>__<category>__<variation>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}

		rec, err := record.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := record.ExportROOT(output, rec); err != nil {
			return err
		}

		logger.WithField("output", output).Info("Exported histograms")
		return nil
	},
}

func init() {
	exportCmd.Flags().String("output", "histograms.root", "output ROOT file")
	rootCmd.AddCommand(exportCmd)
}
