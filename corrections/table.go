package corrections

import (
	"fmt"
	"math"
	"sort"
)

// Table is a binned scale-factor lookup with optional up/down columns.
// Bin i covers [Edges[i], Edges[i+1]).
type Table struct {
	Edges   []float64 `yaml:"edges"`
	Nominal []float64 `yaml:"nominal"`
	Up      []float64 `yaml:"up,omitempty"`
	Down    []float64 `yaml:"down,omitempty"`
	// Clamp maps values outside the edges onto the first/last bin instead
	// of failing.
	Clamp bool `yaml:"clamp,omitempty"`
}

func (t *Table) Validate() error {
	nbins := len(t.Edges) - 1
	if nbins < 1 {
		return fmt.Errorf("%w: need at least two edges", ErrBadTable)
	}
	if !sort.Float64sAreSorted(t.Edges) {
		return fmt.Errorf("%w: edges are not sorted", ErrBadTable)
	}
	if len(t.Nominal) != nbins {
		return fmt.Errorf("%w: %d nominal values for %d bins", ErrBadTable, len(t.Nominal), nbins)
	}
	if (t.Up == nil) != (t.Down == nil) {
		return fmt.Errorf("%w: up and down must be given together", ErrBadTable)
	}
	if t.Up != nil && (len(t.Up) != nbins || len(t.Down) != nbins) {
		return fmt.Errorf("%w: variation columns do not match %d bins", ErrBadTable, nbins)
	}
	return nil
}

// HasVariations reports whether the table carries up/down columns.
func (t *Table) HasVariations() bool { return t.Up != nil }

// Bin returns the bin index of x.
func (t *Table) Bin(x float64) (int, error) {
	lo, hi := t.Edges[0], t.Edges[len(t.Edges)-1]
	switch {
	case math.IsNaN(x):
		return 0, fmt.Errorf("%w: NaN", ErrOutOfRange)
	case x < lo || x >= hi:
		if !t.Clamp {
			return 0, fmt.Errorf("%w: %v not in [%v, %v)", ErrOutOfRange, x, lo, hi)
		}
		if x < lo {
			return 0, nil
		}
		return len(t.Edges) - 2, nil
	}
	return sort.Search(len(t.Edges), func(i int) bool { return t.Edges[i] > x }) - 1, nil
}

// Lookup returns the nominal, up and down values for x. Without variation
// columns up and down equal the nominal value.
func (t *Table) Lookup(x float64) (nom, up, down float64, err error) {
	i, err := t.Bin(x)
	if err != nil {
		return 0, 0, 0, err
	}
	nom = t.Nominal[i]
	if !t.HasVariations() {
		return nom, nom, nom, nil
	}
	return nom, t.Up[i], t.Down[i], nil
}
