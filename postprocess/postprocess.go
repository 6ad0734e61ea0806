// Package postprocess turns merged results into what a plot needs:
// luminosity-normalised histograms, stacks over processes and the
// statistical plus systematic uncertainty band.
package postprocess

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/deoache/susy-vbf/histo"
	"github.com/deoache/susy-vbf/processor"
	"github.com/deoache/susy-vbf/shifts"
)

var (
	ErrZeroSumW      = errors.New("sum of generator weights is zero")
	ErrNoProcesses   = errors.New("no processes to stack")
	ErrBinMismatch   = errors.New("histograms have different bins")
	ErrEmptyHistName = errors.New("histogram name is required")
)

// Normalize scales the histograms of an MC result to xsec*lumi/sumw. The
// metadata is kept as recorded.
func Normalize(r *processor.Result, xsec, lumi float64) (*processor.Result, error) {
	if r.Metadata.SumW == 0 {
		return nil, ErrZeroSumW
	}
	return &processor.Result{
		Metadata:   r.Metadata,
		Histograms: r.Histograms.Scaled(xsec * lumi / r.Metadata.SumW),
	}, nil
}

// Hist is one projected histogram: bin contents and their variances.
type Hist struct {
	Values    []float64
	Variances []float64
}

func (h Hist) add(o Hist) (Hist, error) {
	if h.Values == nil {
		return Hist{Values: clone(o.Values), Variances: clone(o.Variances)}, nil
	}
	if len(h.Values) != len(o.Values) {
		return Hist{}, fmt.Errorf("%w: %d and %d", ErrBinMismatch, len(h.Values), len(o.Values))
	}
	out := Hist{Values: clone(h.Values), Variances: clone(h.Variances)}
	for i := range o.Values {
		out.Values[i] += o.Values[i]
		if out.Variances != nil && o.Variances != nil {
			out.Variances[i] += o.Variances[i]
		}
	}
	return out, nil
}

func clone(s []float64) []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s...)
}

// Project reads one (category, variation) cell of a histogram. Variances
// fall back to the values when the histogram stores no squared weights.
func Project(h *histo.Histogram, category, variation string) (Hist, error) {
	values, err := h.Values(category, variation)
	if err != nil {
		return Hist{}, err
	}
	variances, err := h.Variances(category, variation)
	if errors.Is(err, histo.ErrNoWeightStorage) {
		variances = clone(values)
	} else if err != nil {
		return Hist{}, err
	}
	return Hist{Values: values, Variances: variances}, nil
}

// DivideByBinWidth divides contents by the bin width and variances by its
// square.
func DivideByBinWidth(h Hist, edges []float64) (Hist, error) {
	if len(edges) != len(h.Values)+1 {
		return Hist{}, fmt.Errorf("%w: %d edges for %d bins", ErrBinMismatch, len(edges), len(h.Values))
	}
	out := Hist{Values: make([]float64, len(h.Values)), Variances: make([]float64, len(h.Values))}
	for i := range h.Values {
		w := edges[i+1] - edges[i]
		out.Values[i] = h.Values[i] / w
		out.Variances[i] = h.Variances[i] / (w * w)
	}
	return out, nil
}

// Stack is one histogram and category summed over processes.
type Stack struct {
	// Processes holds the nominal histogram of every process.
	Processes map[string]Hist
	Nominal   Hist
	// Variations holds the summed histogram of every non-nominal label.
	Variations map[string]Hist
}

type StackOptions struct {
	Histogram string
	Category  string
	// DivideByBinWidth applies to histograms over one Variable axis.
	DivideByBinWidth bool
}

// NewStack sums a histogram over processes. A process that lacks a
// variation some other process has contributes its nominal histogram to
// that variation.
func NewStack(results map[string]*processor.Result, opts StackOptions) (*Stack, error) {
	if opts.Histogram == "" {
		return nil, ErrEmptyHistName
	}
	if len(results) == 0 {
		return nil, ErrNoProcesses
	}

	processes := make([]string, 0, len(results))
	labels := make(map[string]struct{})
	for process, r := range results {
		processes = append(processes, process)
		h, err := r.Histograms.Histogram(opts.Histogram)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", process, err)
		}
		for _, v := range h.Variations() {
			if v != shifts.Nominal {
				labels[v] = struct{}{}
			}
		}
	}
	sort.Strings(processes)

	s := &Stack{Processes: make(map[string]Hist, len(results)), Variations: make(map[string]Hist, len(labels))}
	for _, process := range processes {
		f := results[process].Histograms
		h, _ := f.Histogram(opts.Histogram)
		read := func(variation string) (Hist, error) {
			out, err := Project(h, opts.Category, variation)
			if err != nil || !opts.DivideByBinWidth {
				return out, err
			}
			edges, ok := variableEdges(f.Config(), h)
			if !ok {
				return out, nil
			}
			return DivideByBinWidth(out, edges)
		}

		nominal, err := read(shifts.Nominal)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", process, err)
		}
		s.Processes[process] = nominal
		if s.Nominal, err = s.Nominal.add(nominal); err != nil {
			return nil, fmt.Errorf("process %s: %w", process, err)
		}

		have := make(map[string]bool)
		for _, v := range h.Variations() {
			have[v] = true
		}
		for label := range labels {
			hv := nominal
			if have[label] {
				if hv, err = read(label); err != nil {
					return nil, fmt.Errorf("process %s: %w", process, err)
				}
			}
			if s.Variations[label], err = s.Variations[label].add(hv); err != nil {
				return nil, fmt.Errorf("process %s variation %s: %w", process, label, err)
			}
		}
	}
	return s, nil
}

// variableEdges returns the edges of a histogram over a single Variable
// axis.
func variableEdges(cfg histo.Config, h *histo.Histogram) ([]float64, bool) {
	axes := h.Axes()
	if len(axes) != 1 {
		return nil, false
	}
	a := cfg.Axes[axes[0]]
	return a.Edges, a.Kind == histo.Variable
}

// IsUp reports whether a variation label is an upward variation.
func IsUp(label string) bool { return strings.Contains(label, "Up") }
