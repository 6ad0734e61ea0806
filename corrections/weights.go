package corrections

import (
	"fmt"
	"math"

	"github.com/deoache/susy-vbf/event"
	"github.com/deoache/susy-vbf/weights"
)

// WeightProvider computes one named contribution to the event weight.
// Up and down vectors are only produced for the nominal shift; the other
// shifts are filled with nominal weights and never need them.
type WeightProvider interface {
	Name() string
	Weight(b *event.Batch, objs event.Objects, shift string) (weights.Factor, error)
}

// GenWeight registers a scalar column (the generator weight) as is.
type GenWeight struct {
	Label  string
	Scalar string
}

func (g *GenWeight) Name() string { return g.Label }

func (g *GenWeight) Weight(b *event.Batch, _ event.Objects, _ string) (weights.Factor, error) {
	values, err := b.Scalar(g.Scalar)
	if err != nil {
		return weights.Factor{}, fmt.Errorf("weight %q: %w", g.Label, err)
	}
	return weights.Factor{Nominal: values}, nil
}

// EventScaleFactor looks up one value per event, binned in a scalar column
// (pileup reweighting in the number of true interactions, for example).
type EventScaleFactor struct {
	Label  string
	Scalar string
	Table  *Table
}

func (e *EventScaleFactor) Name() string { return e.Label }

func (e *EventScaleFactor) Weight(b *event.Batch, _ event.Objects, shift string) (weights.Factor, error) {
	x, err := b.Scalar(e.Scalar)
	if err != nil {
		return weights.Factor{}, fmt.Errorf("weight %q: %w", e.Label, err)
	}

	withVariations := shift == weights.Nominal && e.Table.HasVariations()
	f := newFactor(len(x), withVariations)
	for i, v := range x {
		nom, up, down, err := e.Table.Lookup(v)
		if err != nil {
			return weights.Factor{}, fmt.Errorf("weight %q event %d: %w", e.Label, i, err)
		}
		f.Nominal[i] = nom
		if withVariations {
			f.Up[i], f.Down[i] = up, down
		}
	}
	return f, nil
}

// ObjectScaleFactor is the product, over the selected objects of one type,
// of a per-object lookup binned in one object field. Events without
// objects get a unit factor.
type ObjectScaleFactor struct {
	Label  string
	Object string
	Field  string
	// Abs bins in the absolute value of Field (|eta|).
	Abs   bool
	Table *Table
}

func (o *ObjectScaleFactor) Name() string { return o.Label }

func (o *ObjectScaleFactor) Weight(b *event.Batch, objs event.Objects, shift string) (weights.Factor, error) {
	c, ok := objs[o.Object]
	if !ok {
		return weights.Factor{}, fmt.Errorf("weight %q: %w %q", o.Label, event.ErrUnknownCollection, o.Object)
	}
	x, err := c.Field(o.Field)
	if err != nil {
		return weights.Factor{}, fmt.Errorf("weight %q: %w", o.Label, err)
	}

	withVariations := shift == weights.Nominal && o.Table.HasVariations()
	f := newFactor(b.Len(), withVariations)
	for e := 0; e < x.Len(); e++ {
		for _, v := range x.Row(e) {
			if o.Abs {
				v = math.Abs(v)
			}
			nom, up, down, err := o.Table.Lookup(v)
			if err != nil {
				return weights.Factor{}, fmt.Errorf("weight %q event %d: %w", o.Label, e, err)
			}
			f.Nominal[e] *= nom
			if withVariations {
				f.Up[e] *= up
				f.Down[e] *= down
			}
		}
	}
	return f, nil
}

func newFactor(n int, withVariations bool) weights.Factor {
	f := weights.Factor{Nominal: ones(n)}
	if withVariations {
		f.Up, f.Down = ones(n), ones(n)
	}
	return f
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
