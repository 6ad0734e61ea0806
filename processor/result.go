package processor

import (
	"fmt"
	"sort"

	"github.com/deoache/susy-vbf/histo"
	"github.com/deoache/susy-vbf/selection"
)

// CategoryMetadata is recorded from the nominal shift only.
type CategoryMetadata struct {
	Cutflow       selection.Cutflow `yaml:"cutflow"`
	WeightedFinal float64           `yaml:"weighted_final_nevents"`
	RawFinal      int64             `yaml:"raw_final_nevents"`
}

type Metadata struct {
	RawInitial int64                       `yaml:"raw_initial_nevents"`
	SumW       float64                     `yaml:"sumw"`
	Categories map[string]CategoryMetadata `yaml:"categories"`
}

// Result is the output of one batch, or of several merged batches.
type Result struct {
	Metadata   Metadata
	Histograms *histo.Family
}

func mergeMetadata(a, b Metadata) (Metadata, error) {
	out := Metadata{
		RawInitial: a.RawInitial + b.RawInitial,
		SumW:       a.SumW + b.SumW,
		Categories: make(map[string]CategoryMetadata, len(a.Categories)),
	}

	names := make(map[string]struct{}, len(a.Categories))
	for name := range a.Categories {
		names[name] = struct{}{}
	}
	for name := range b.Categories {
		names[name] = struct{}{}
	}

	for name := range names {
		ca, cb := a.Categories[name], b.Categories[name]
		cutflow, err := ca.Cutflow.Merge(cb.Cutflow)
		if err != nil {
			return Metadata{}, fmt.Errorf("category %q: %w", name, err)
		}
		out.Categories[name] = CategoryMetadata{
			Cutflow:       cutflow,
			WeightedFinal: ca.WeightedFinal + cb.WeightedFinal,
			RawFinal:      ca.RawFinal + cb.RawFinal,
		}
	}
	return out, nil
}

// Merge adds two results. It is associative and commutative up to
// floating-point rounding, and never modifies its inputs.
func Merge(a, b *Result) (*Result, error) {
	meta, err := mergeMetadata(a.Metadata, b.Metadata)
	if err != nil {
		return nil, err
	}
	hists, err := histo.Merge(a.Histograms, b.Histograms)
	if err != nil {
		return nil, err
	}
	return &Result{Metadata: meta, Histograms: hists}, nil
}

// Reduce merges results left to right. A single result is returned as is.
func Reduce(results ...*Result) (*Result, error) {
	if len(results) == 0 {
		return nil, ErrNothingToReduce
	}
	acc := results[0]
	for _, r := range results[1:] {
		var err error
		if acc, err = Merge(acc, r); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// CategoryNames returns the sorted names of the recorded categories.
func (m Metadata) CategoryNames() []string {
	out := make([]string, 0, len(m.Categories))
	for name := range m.Categories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
