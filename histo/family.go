package histo

import (
	"fmt"
	"slices"
	"sort"
)

// Family is the set of histograms built from one Config.
type Family struct {
	cfg        Config
	categories []string
	names      []string
	hists      map[string]*Histogram
}

// Build creates an empty family with one category bin per entry of
// categories.
func Build(cfg Config, categories []string) (*Family, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrBadAxis)
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if seen[c] {
			return nil, fmt.Errorf("%w: category %q repeated", ErrBadAxis, c)
		}
		seen[c] = true
	}

	f := &Family{
		cfg:        cfg,
		categories: slices.Clone(categories),
		hists:      make(map[string]*Histogram),
	}
	for _, spec := range cfg.Histograms() {
		axes := make([]Axis, len(spec.Axes))
		for i, name := range spec.Axes {
			axes[i] = cfg.Axes[name]
		}
		f.names = append(f.names, spec.Name)
		f.hists[spec.Name] = newHistogram(spec.Name, slices.Clone(spec.Axes), axes, f.categories, &cfg)
	}
	return f, nil
}

func (f *Family) Config() Config { return f.cfg }

// Categories returns the category axis bins in declaration order.
func (f *Family) Categories() []string { return slices.Clone(f.categories) }

// Names returns the sorted histogram names.
func (f *Family) Names() []string { return slices.Clone(f.names) }

// HasSystAxis reports whether variations other than nominal can be filled.
func (f *Family) HasSystAxis() bool { return f.cfg.AddSystAxis }

func (f *Family) Histogram(name string) (*Histogram, error) {
	h, ok := f.hists[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownHistogram, name)
	}
	return h, nil
}

// Fill fills the one-axis histogram of variable.
func (f *Family) Fill(variable, category, variation string, values, weights []float64) error {
	h, err := f.Histogram(variable)
	if err != nil {
		return err
	}
	return h.Fill(category, variation, [][]float64{values}, weights)
}

// FillN fills a histogram with one value column per axis.
func (f *Family) FillN(histogram, category, variation string, values [][]float64, weights []float64) error {
	h, err := f.Histogram(histogram)
	if err != nil {
		return err
	}
	return h.Fill(category, variation, values, weights)
}

// FillVariables fills every histogram from the extracted variables, which
// must cover all axes.
func (f *Family) FillVariables(category, variation string, vars map[string][]float64, weights []float64) error {
	for _, name := range f.names {
		h := f.hists[name]
		cols := make([][]float64, len(h.axisNames))
		for i, axis := range h.axisNames {
			col, ok := vars[axis]
			if !ok {
				return fmt.Errorf("histogram %q: %w: variable %q not extracted", name, ErrAxisMismatch, axis)
			}
			cols[i] = col
		}
		if err := h.Fill(category, variation, cols, weights); err != nil {
			return err
		}
	}
	return nil
}

// Variations returns the sorted union of the variations of every
// histogram.
func (f *Family) Variations() []string {
	set := make(map[string]struct{})
	for _, h := range f.hists {
		for v := range h.variations {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Merge returns the bin-by-bin sum of a and b. Neither input is modified;
// the result shares no cells with them.
func Merge(a, b *Family) (*Family, error) {
	if !slices.Equal(a.names, b.names) {
		return nil, fmt.Errorf("%w: families hold different histograms", ErrAxisMismatch)
	}

	out := &Family{
		cfg:        a.cfg,
		categories: a.categories,
		names:      a.names,
		hists:      make(map[string]*Histogram, len(a.hists)),
	}
	for _, name := range a.names {
		h, err := a.hists[name].merged(b.hists[name])
		if err != nil {
			return nil, err
		}
		out.hists[name] = h
	}
	return out, nil
}

// Scaled returns a copy of f with every bin multiplied by factor.
func (f *Family) Scaled(factor float64) *Family {
	out := &Family{
		cfg:        f.cfg,
		categories: f.categories,
		names:      f.names,
		hists:      make(map[string]*Histogram, len(f.hists)),
	}
	for name, h := range f.hists {
		out.hists[name] = h.scaled(factor)
	}
	return out
}
