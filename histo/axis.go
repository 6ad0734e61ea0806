package histo

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/deoache/susy-vbf/expr"
)

type AxisKind string

const (
	Regular     AxisKind = "Regular"
	Variable    AxisKind = "Variable"
	IntCategory AxisKind = "IntCategory"
	// StrCategory is only used for the category axis.
	StrCategory AxisKind = "StrCategory"
)

// Axis declares one observable: its binning, a label and the expression
// that extracts it from a batch.
type Axis struct {
	Kind  AxisKind `yaml:"type"`
	Bins  int      `yaml:"bins,omitempty"`
	Start float64  `yaml:"start,omitempty"`
	Stop  float64  `yaml:"stop,omitempty"`
	// Edges are the boundaries of a Variable axis.
	Edges []float64 `yaml:"edges,omitempty"`
	// Values are the categories of an IntCategory axis.
	Values     []int     `yaml:"values,omitempty"`
	Label      string    `yaml:"label,omitempty"`
	Expression expr.Spec `yaml:"expression"`
}

func (a *Axis) Validate() error {
	switch a.Kind {
	case Regular:
		if a.Bins < 1 {
			return fmt.Errorf("%w: regular axis needs at least one bin", ErrBadAxis)
		}
		if !(a.Stop > a.Start) {
			return fmt.Errorf("%w: regular axis range [%v, %v) is empty", ErrBadAxis, a.Start, a.Stop)
		}
	case Variable:
		if len(a.Edges) < 2 {
			return fmt.Errorf("%w: variable axis needs at least two edges", ErrBadAxis)
		}
		for i := 1; i < len(a.Edges); i++ {
			if !(a.Edges[i] > a.Edges[i-1]) {
				return fmt.Errorf("%w: variable axis edges must increase", ErrBadAxis)
			}
		}
	case IntCategory:
		if len(a.Values) == 0 {
			return fmt.Errorf("%w: int category axis without values", ErrBadAxis)
		}
		seen := make(map[int]bool, len(a.Values))
		for _, v := range a.Values {
			if seen[v] {
				return fmt.Errorf("%w: int category %d repeated", ErrBadAxis, v)
			}
			seen[v] = true
		}
	case StrCategory:
		return fmt.Errorf("%w: string categories are reserved for the category axis", ErrBadAxis)
	default:
		return fmt.Errorf("%w: unknown axis type %q", ErrBadAxis, a.Kind)
	}
	return nil
}

// Size returns the number of in-range bins.
func (a *Axis) Size() int {
	switch a.Kind {
	case Regular:
		return a.Bins
	case Variable:
		return len(a.Edges) - 1
	case IntCategory:
		return len(a.Values)
	}
	return 0
}

// numeric reports whether the axis has real-valued edges.
func (a *Axis) numeric() bool { return a.Kind == Regular || a.Kind == Variable }

func (a *Axis) lo() float64 {
	if a.Kind == Regular {
		return a.Start
	}
	return a.Edges[0]
}

func (a *Axis) hi() float64 {
	if a.Kind == Regular {
		return a.Stop
	}
	return a.Edges[len(a.Edges)-1]
}

// Index returns the bin of x. With flow, values beyond the edges land in
// the first or last bin. The second result is false for NaN, for
// out-of-range values without flow and for unknown int categories.
func (a *Axis) Index(x float64, flow bool) (int, bool) {
	if math.IsNaN(x) {
		return 0, false
	}

	if a.Kind == IntCategory {
		if x != math.Trunc(x) {
			return 0, false
		}
		i := slices.Index(a.Values, int(x))
		return i, i >= 0
	}

	n := a.Size()
	switch {
	case x < a.lo():
		return 0, flow
	case x >= a.hi():
		return n - 1, flow
	}

	if a.Kind == Regular {
		i := int((x - a.Start) / (a.Stop - a.Start) * float64(n))
		return min(i, n-1), true
	}
	return sort.Search(len(a.Edges), func(i int) bool { return a.Edges[i] > x }) - 1, true
}

// center returns a coordinate inside bin i, used to clip flow values.
func (a *Axis) center(i int) float64 {
	if a.Kind == Regular {
		w := (a.Stop - a.Start) / float64(a.Bins)
		return a.Start + (float64(i)+0.5)*w
	}
	return 0.5 * (a.Edges[i] + a.Edges[i+1])
}

func (a *Axis) sameBinning(o *Axis) bool {
	return a.Kind == o.Kind && a.Bins == o.Bins && a.Start == o.Start && a.Stop == o.Stop &&
		slices.Equal(a.Edges, o.Edges) && slices.Equal(a.Values, o.Values)
}
