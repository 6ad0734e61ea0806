package corrections

import (
	"fmt"
	"math"

	"github.com/deoache/susy-vbf/event"
)

// JetScale varies jet transverse momenta by a relative uncertainty binned
// in |eta| and propagates the change to the missing energy. It serves both
// the energy-scale and the energy-resolution shifts; only the table
// differs.
type JetScale struct {
	Jets string
	// MET is left empty to skip the propagation.
	MET         string
	Uncertainty *Table
}

// Shift returns the substituted jet (and missing energy) collections.
func (j *JetScale) Shift(b *event.Batch, up bool) (map[string]*event.Collection, error) {
	jets, err := b.Collection(j.Jets)
	if err != nil {
		return nil, err
	}
	pt, err := jets.Field("pt")
	if err != nil {
		return nil, err
	}
	eta, err := jets.Field("eta")
	if err != nil {
		return nil, err
	}
	phi, err := jets.Field("phi")
	if err != nil {
		return nil, err
	}

	sign := 1.0
	if !up {
		sign = -1
	}

	shifted := make([]float64, len(pt.Values))
	dpx := make([]float64, b.Len())
	dpy := make([]float64, b.Len())
	for e := 0; e < pt.Len(); e++ {
		for i := pt.Offsets[e]; i < pt.Offsets[e+1]; i++ {
			u, _, _, err := j.Uncertainty.Lookup(math.Abs(eta.Values[i]))
			if err != nil {
				return nil, fmt.Errorf("jet %d of event %d: %w", i-pt.Offsets[e], e, err)
			}
			shifted[i] = pt.Values[i] * (1 + sign*u)
			d := shifted[i] - pt.Values[i]
			dpx[e] += d * math.Cos(phi.Values[i])
			dpy[e] += d * math.Sin(phi.Values[i])
		}
	}

	out := make(map[string]*event.Collection, 2)
	if out[j.Jets], err = jets.WithField("pt", shifted); err != nil {
		return nil, err
	}
	if j.MET == "" {
		return out, nil
	}

	// the missing energy balances the visible momentum, so it moves opposite
	// to the jets
	for e := range dpx {
		dpx[e], dpy[e] = -dpx[e], -dpy[e]
	}
	if out[j.MET], err = addToMET(b, j.MET, dpx, dpy); err != nil {
		return nil, err
	}
	return out, nil
}

// UnclusteredEnergy adds or subtracts the unclustered-energy delta, stored
// per event on the missing energy record, to the missing energy.
type UnclusteredEnergy struct {
	MET    string
	DeltaX string
	DeltaY string
}

func (u *UnclusteredEnergy) Shift(b *event.Batch, up bool) (map[string]*event.Collection, error) {
	met, err := perEvent(b, u.MET)
	if err != nil {
		return nil, err
	}
	dx, err := met.Field(u.DeltaX)
	if err != nil {
		return nil, err
	}
	dy, err := met.Field(u.DeltaY)
	if err != nil {
		return nil, err
	}

	sign := 1.0
	if !up {
		sign = -1
	}
	dpx := make([]float64, b.Len())
	dpy := make([]float64, b.Len())
	for e := range dpx {
		dpx[e] = sign * dx.Values[e]
		dpy[e] = sign * dy.Values[e]
	}

	shifted, err := addToMET(b, u.MET, dpx, dpy)
	if err != nil {
		return nil, err
	}
	return map[string]*event.Collection{u.MET: shifted}, nil
}

// perEvent returns the named collection when it holds exactly one record
// per event.
func perEvent(b *event.Batch, name string) (*event.Collection, error) {
	met, err := b.Collection(name)
	if err != nil {
		return nil, err
	}
	for _, n := range met.Counts() {
		if n != 1 {
			return nil, fmt.Errorf("%w: %q must hold one record per event", ErrBadConfig, name)
		}
	}
	return met, nil
}

func addToMET(b *event.Batch, name string, dpx, dpy []float64) (*event.Collection, error) {
	met, err := perEvent(b, name)
	if err != nil {
		return nil, err
	}
	pt, err := met.Field("pt")
	if err != nil {
		return nil, err
	}
	phi, err := met.Field("phi")
	if err != nil {
		return nil, err
	}

	newPt := make([]float64, len(pt.Values))
	newPhi := make([]float64, len(phi.Values))
	for e := range newPt {
		px := pt.Values[e]*math.Cos(phi.Values[e]) + dpx[e]
		py := pt.Values[e]*math.Sin(phi.Values[e]) + dpy[e]
		newPt[e] = math.Hypot(px, py)
		newPhi[e] = math.Atan2(py, px)
	}

	out, err := met.WithField("pt", newPt)
	if err != nil {
		return nil, err
	}
	return out.WithField("phi", newPhi)
}

// Corrector rewrites a batch view before the weights and the object
// selection of a shift are computed.
type Corrector interface {
	Correct(b *event.Batch) (*event.Batch, error)
}

// FieldScale multiplies one collection field by a factor binned in another
// field of the same collection (tau or muon energy scale, for example).
type FieldScale struct {
	Collection string
	Field      string
	By         string
	Abs        bool
	Table      *Table
}

func (f *FieldScale) Correct(b *event.Batch) (*event.Batch, error) {
	c, err := b.Collection(f.Collection)
	if err != nil {
		return nil, err
	}
	values, err := c.Field(f.Field)
	if err != nil {
		return nil, err
	}
	by, err := c.Field(f.By)
	if err != nil {
		return nil, err
	}

	scaled := make([]float64, len(values.Values))
	for i, v := range values.Values {
		x := by.Values[i]
		if f.Abs {
			x = math.Abs(x)
		}
		nom, _, _, err := f.Table.Lookup(x)
		if err != nil {
			return nil, fmt.Errorf("scale %s.%s: %w", f.Collection, f.Field, err)
		}
		scaled[i] = v * nom
	}

	corrected, err := c.WithField(f.Field, scaled)
	if err != nil {
		return nil, err
	}
	return b.With(map[string]*event.Collection{f.Collection: corrected})
}
