package histo

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"go-hep.org/x/hep/hbook"

	"github.com/deoache/susy-vbf/weights"
)

type cellKey struct {
	category  string
	variation string
}

// Histogram is one named histogram of a family.
type Histogram struct {
	name       string
	axisNames  []string
	axes       []Axis
	categories []string
	syst       bool
	weighted   bool
	flow       bool
	size       int

	cells      map[cellKey]*hbook.H1D
	variations map[string]struct{}
}

func newHistogram(name string, axisNames []string, axes []Axis, categories []string, cfg *Config) *Histogram {
	size := 1
	for i := range axes {
		size *= axes[i].Size()
	}
	return &Histogram{
		name:       name,
		axisNames:  axisNames,
		axes:       axes,
		categories: categories,
		syst:       cfg.AddSystAxis,
		weighted:   cfg.AddWeight,
		flow:       cfg.Flow,
		size:       size,
		cells:      make(map[cellKey]*hbook.H1D),
		variations: make(map[string]struct{}),
	}
}

func (h *Histogram) Name() string { return h.name }

// Axes returns the names of the observable axes.
func (h *Histogram) Axes() []string { return slices.Clone(h.axisNames) }

// Size returns the number of in-range bins of one cell.
func (h *Histogram) Size() int { return h.size }

// direct reports whether cells use the axis edges rather than a linear
// index.
func (h *Histogram) direct() bool { return len(h.axes) == 1 && h.axes[0].numeric() }

func (h *Histogram) newCell() *hbook.H1D {
	var c *hbook.H1D
	switch {
	case !h.direct():
		c = hbook.NewH1D(h.size, 0, float64(h.size))
	case h.axes[0].Kind == Regular:
		c = hbook.NewH1D(h.axes[0].Bins, h.axes[0].Start, h.axes[0].Stop)
	default:
		c = hbook.NewH1DFromEdges(h.axes[0].Edges)
	}
	c.Ann["name"] = h.name
	return c
}

func (h *Histogram) checkKey(category, variation string) error {
	if !slices.Contains(h.categories, category) {
		return fmt.Errorf("histogram %q: %w: unknown category %q", h.name, ErrAxisMismatch, category)
	}
	if !h.syst && variation != weights.Nominal {
		return fmt.Errorf("histogram %q: %w: variation %q without a variation axis", h.name, ErrAxisMismatch, variation)
	}
	return nil
}

// Fill accumulates one entry per event. values holds one column per axis.
// Entries with NaN coordinates, unknown int categories or, without flow,
// out-of-range coordinates are not counted.
func (h *Histogram) Fill(category, variation string, values [][]float64, w []float64) error {
	if len(values) != len(h.axes) {
		return fmt.Errorf("histogram %q: %w: %d value columns for %d axes", h.name, ErrAxisMismatch, len(values), len(h.axes))
	}
	for i, col := range values {
		if len(col) != len(w) {
			return fmt.Errorf("histogram %q axis %q: %w: %d values for %d weights", h.name, h.axisNames[i], ErrAxisMismatch, len(col), len(w))
		}
	}
	if err := h.checkKey(category, variation); err != nil {
		return err
	}

	key := cellKey{category, variation}
	cell, ok := h.cells[key]
	if !ok {
		cell = h.newCell()
		h.cells[key] = cell
	}
	h.variations[variation] = struct{}{}

	if h.direct() {
		a := &h.axes[0]
		for e, x := range values[0] {
			if math.IsNaN(x) {
				continue
			}
			// without flow, out-of-range values stay in the hbook
			// underflow and overflow and never reach Values
			if h.flow && (x < a.lo() || x >= a.hi()) {
				i, _ := a.Index(x, true)
				x = a.center(i)
			}
			cell.Fill(x, w[e])
		}
		return nil
	}

events:
	for e := range w {
		idx := 0
		for k := range h.axes {
			i, ok := h.axes[k].Index(values[k][e], h.flow)
			if !ok {
				continue events
			}
			idx = idx*h.axes[k].Size() + i
		}
		cell.Fill(float64(idx)+0.5, w[e])
	}
	return nil
}

func (h *Histogram) cell(category, variation string) (*hbook.H1D, error) {
	if err := h.checkKey(category, variation); err != nil {
		return nil, err
	}
	return h.cells[cellKey{category, variation}], nil
}

// Values returns the sum of weights of every in-range bin in row-major
// order. Cells that were never filled read as zero.
func (h *Histogram) Values(category, variation string) ([]float64, error) {
	return h.read(category, variation, func(b hbook.Bin1D) float64 { return b.SumW() })
}

// Variances returns the sum of squared weights per bin.
func (h *Histogram) Variances(category, variation string) ([]float64, error) {
	if !h.weighted {
		return nil, fmt.Errorf("histogram %q: %w", h.name, ErrNoWeightStorage)
	}
	return h.read(category, variation, func(b hbook.Bin1D) float64 { return b.SumW2() })
}

// Entries returns the unweighted number of fills per bin.
func (h *Histogram) Entries(category, variation string) ([]float64, error) {
	return h.read(category, variation, func(b hbook.Bin1D) float64 { return float64(b.Entries()) })
}

func (h *Histogram) read(category, variation string, f func(hbook.Bin1D) float64) ([]float64, error) {
	c, err := h.cell(category, variation)
	if err != nil {
		return nil, err
	}
	out := make([]float64, h.size)
	if c == nil {
		return out, nil
	}
	for i, b := range c.Binning.Bins {
		out[i] = f(b)
	}
	return out, nil
}

// Variations returns the sorted variation labels seen by Fill.
func (h *Histogram) Variations() []string {
	out := make([]string, 0, len(h.variations))
	for v := range h.variations {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Categories returns the category axis bins.
func (h *Histogram) Categories() []string { return slices.Clone(h.categories) }

// H1D returns a copy of one cell for export, nil when never filled.
func (h *Histogram) H1D(category, variation string) (*hbook.H1D, error) {
	c, err := h.cell(category, variation)
	if err != nil || c == nil {
		return nil, err
	}
	return hbook.AddH1D(c, h.newCell()), nil
}

func (h *Histogram) compatible(o *Histogram) error {
	if h.name != o.name || h.syst != o.syst || h.weighted != o.weighted || h.flow != o.flow {
		return fmt.Errorf("histogram %q: %w: storage options differ", h.name, ErrAxisMismatch)
	}
	if !slices.Equal(h.axisNames, o.axisNames) || !slices.Equal(h.categories, o.categories) {
		return fmt.Errorf("histogram %q: %w: axes or categories differ", h.name, ErrAxisMismatch)
	}
	for i := range h.axes {
		if !h.axes[i].sameBinning(&o.axes[i]) {
			return fmt.Errorf("histogram %q axis %q: %w: binning differs", h.name, h.axisNames[i], ErrAxisMismatch)
		}
	}
	return nil
}

// merged returns h+o without touching either.
func (h *Histogram) merged(o *Histogram) (*Histogram, error) {
	if err := h.compatible(o); err != nil {
		return nil, err
	}

	out := h.empty()
	for _, src := range []*Histogram{h, o} {
		for key, c := range src.cells {
			if acc, ok := out.cells[key]; ok {
				out.cells[key] = hbook.AddH1D(acc, c)
			} else {
				out.cells[key] = hbook.AddH1D(c, out.newCell())
			}
		}
		for v := range src.variations {
			out.variations[v] = struct{}{}
		}
	}
	return out, nil
}

// scaled returns h with every cell multiplied by f.
func (h *Histogram) scaled(f float64) *Histogram {
	out := h.empty()
	for key, c := range h.cells {
		s := hbook.AddH1D(c, out.newCell())
		s.Scale(f)
		out.cells[key] = s
	}
	for v := range h.variations {
		out.variations[v] = struct{}{}
	}
	return out
}

func (h *Histogram) empty() *Histogram {
	return &Histogram{
		name:       h.name,
		axisNames:  h.axisNames,
		axes:       h.axes,
		categories: h.categories,
		syst:       h.syst,
		weighted:   h.weighted,
		flow:       h.flow,
		size:       h.size,
		cells:      make(map[cellKey]*hbook.H1D),
		variations: make(map[string]struct{}),
	}
}
