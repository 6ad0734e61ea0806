package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/dataset"
	"github.com/deoache/susy-vbf/postprocess"
	"github.com/deoache/susy-vbf/processor"
	"github.com/deoache/susy-vbf/record"
	"github.com/deoache/susy-vbf/shifts"
)

//nolint:gochecknoglobals // Cobra flags
var bandFlags struct {
	datasets         string
	lumi             float64
	histogram        string
	category         string
	divideByBinWidth bool
}

// bandOutput is what `vbf band` prints for plotting tools.
type bandOutput struct {
	Histogram string               `yaml:"histogram"`
	Category  string               `yaml:"category"`
	Lumi      float64              `yaml:"lumi"`
	Processes map[string][]float64 `yaml:"processes"`
	Nominal   []float64            `yaml:"nominal"`
	Up        []float64            `yaml:"up"`
	Down      []float64            `yaml:"down"`
	RatioUp   []float64            `yaml:"ratio_up"`
	RatioDown []float64            `yaml:"ratio_down"`
	Data      []float64            `yaml:"data,omitempty"`
	// data over the nominal stack, with its Poisson ratio interval
	DataRatio   []float64 `yaml:"data_ratio,omitempty"`
	DataRatioLo []float64 `yaml:"data_ratio_lo,omitempty"`
	DataRatioHi []float64 `yaml:"data_ratio_hi,omitempty"`
}

//nolint:gochecknoglobals // Cobra commands are typically global
var bandCmd = &cobra.Command{
	Use:   "band <record>...",
	Short: "Stack MC records and compute the stat+syst uncertainty band",
	Long: `Normalises every simulated record to --lumi (pb^-1) with the cross
section of its dataset config, stacks them by process and combines the
Poisson interval of the stack with the envelope of every variation.
Records of real data are summed into the data histogram.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBand,
}

func init() {
	f := bandCmd.Flags()
	f.StringVar(&bandFlags.datasets, "datasets", "datasets", "directory of dataset configs")
	f.Float64Var(&bandFlags.lumi, "lumi", 0, "integrated luminosity in pb^-1")
	f.StringVar(&bandFlags.histogram, "histogram", "", "histogram name")
	f.StringVar(&bandFlags.category, "category", "", "category name")
	f.BoolVar(&bandFlags.divideByBinWidth, "divide-by-bin-width", true, "divide variable-width bins by their width")
	_ = bandCmd.MarkFlagRequired("lumi")
	_ = bandCmd.MarkFlagRequired("histogram")
	_ = bandCmd.MarkFlagRequired("category")

	rootCmd.AddCommand(bandCmd)
}

func runBand(_ *cobra.Command, args []string) error {
	catalog, err := dataset.LoadCatalog(bandFlags.datasets)
	if err != nil {
		return err
	}

	mc := make(map[string]*processor.Result)
	data := make(map[string]*processor.Result)
	for _, path := range args {
		rec, err := record.ReadFile(path)
		if err != nil {
			return err
		}
		ds, err := catalog.Get(rec.Year, rec.Dataset)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		res, err := rec.Result()
		if err != nil {
			return err
		}

		into := data
		if rec.IsMC {
			if res, err = postprocess.Normalize(res, *ds.XSec, bandFlags.lumi); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			into = mc
		}
		if prev, ok := into[ds.Process]; ok {
			if res, err = processor.Merge(prev, res); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		into[ds.Process] = res

		logger.WithFields(logrus.Fields{"record": path, "process": ds.Process, "is_mc": rec.IsMC}).Debug("Loaded record")
	}

	opts := postprocess.StackOptions{
		Histogram:        bandFlags.histogram,
		Category:         bandFlags.category,
		DivideByBinWidth: bandFlags.divideByBinWidth,
	}
	stack, err := postprocess.NewStack(mc, opts)
	if err != nil {
		return err
	}
	band := postprocess.NewBand(stack)

	out := bandOutput{
		Histogram: bandFlags.histogram,
		Category:  bandFlags.category,
		Lumi:      bandFlags.lumi,
		Processes: make(map[string][]float64, len(stack.Processes)),
		Nominal:   band.Nominal,
		Up:        band.Up,
		Down:      band.Down,
	}
	out.RatioUp, out.RatioDown = band.Ratio()
	for process, h := range stack.Processes {
		out.Processes[process] = h.Values
	}
	if len(data) > 0 {
		observed, err := postprocess.NewStack(data, opts)
		if err != nil {
			return err
		}
		out.Data = observed.Nominal.Values
		out.DataRatio, out.DataRatioLo, out.DataRatioHi = postprocess.RatioInterval(out.Data, band.Nominal, postprocess.OneSigma)
		if len(observed.Variations) > 0 {
			logger.WithField("variations", len(observed.Variations)).Warn("Data records carry variations other than " + shifts.Nominal)
		}
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
