// Package objects turns raw object collections into the selected
// collections (jets, leptons, taus, ...) an analysis works with.
package objects

import (
	"errors"
	"fmt"
	"math"

	"github.com/deoache/susy-vbf/event"
	"github.com/deoache/susy-vbf/expr"
)

var (
	ErrMissingYear   = errors.New("no threshold for year")
	ErrUnknownSet    = errors.New("unknown object set")
	ErrDuplicateName = errors.New("duplicate object name")
)

// DeltaRGreater is the cross-cleaning operator: the object passes when its
// distance to every object of the Against set exceeds the threshold.
const DeltaRGreater = "dr>"

// Cut is one per-object requirement.
type Cut struct {
	Field string             `yaml:"field"`
	Op    string             `yaml:"op"`
	Value float64            `yaml:"value"`
	Years map[string]float64 `yaml:"years,omitempty"`
	// Against names an earlier object set; only used with dr>.
	Against string `yaml:"against,omitempty"`
}

// Definition selects one object type out of a raw collection.
type Definition struct {
	Name       string `yaml:"name"`
	Collection string `yaml:"collection"`
	Cuts       []Cut  `yaml:"cuts"`
}

// Config is evaluated in order, so a definition may clean against any set
// defined before it.
type Config []Definition

type cut struct {
	field     string
	op        expr.Op
	deltaR    bool
	against   string
	threshold float64
}

type definition struct {
	name       string
	collection string
	cuts       []cut
}

// Selector is a Config with the year-dependent thresholds resolved.
type Selector struct {
	year string
	defs []definition
}

func NewSelector(cfg Config, year string) (*Selector, error) {
	s := &Selector{year: year}
	seen := make(map[string]bool, len(cfg))

	for _, d := range cfg {
		if seen[d.Name] {
			return nil, fmt.Errorf("%w %q", ErrDuplicateName, d.Name)
		}

		def := definition{name: d.Name, collection: d.Collection}
		for _, c := range d.Cuts {
			compiled := cut{field: c.Field, threshold: c.Value, against: c.Against}

			if len(c.Years) > 0 {
				v, ok := c.Years[year]
				if !ok {
					return nil, fmt.Errorf("object %q cut on %q: %w %q", d.Name, c.Field, ErrMissingYear, year)
				}
				compiled.threshold = v
			}

			if c.Op == DeltaRGreater {
				if !seen[c.Against] {
					return nil, fmt.Errorf("object %q: %w %q (cross-cleaning must reference an earlier set)", d.Name, ErrUnknownSet, c.Against)
				}
				compiled.deltaR = true
			} else {
				op, err := expr.ParseOp(c.Op)
				if err != nil {
					return nil, fmt.Errorf("object %q cut on %q: %w", d.Name, c.Field, err)
				}
				compiled.op = op
			}

			def.cuts = append(def.cuts, compiled)
		}

		seen[d.Name] = true
		s.defs = append(s.defs, def)
	}

	return s, nil
}

// Select applies every definition to the batch view.
func (s *Selector) Select(b *event.Batch) (event.Objects, error) {
	out := make(event.Objects, len(s.defs))

	for _, def := range s.defs {
		raw, err := b.Collection(def.collection)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", def.name, err)
		}

		keep := make([]bool, raw.Total())
		for i := range keep {
			keep[i] = true
		}

		for _, c := range def.cuts {
			if c.deltaR {
				if err := cleanAgainst(keep, raw, out[c.against], c.threshold); err != nil {
					return nil, fmt.Errorf("object %q: %w", def.name, err)
				}
				continue
			}

			values, err := raw.Field(c.field)
			if err != nil {
				return nil, fmt.Errorf("object %q: %w", def.name, err)
			}
			for i, v := range values.Values {
				keep[i] = keep[i] && c.op.Apply(v, c.threshold)
			}
		}

		selected, err := raw.Filter(keep)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", def.name, err)
		}
		out[def.name] = selected
	}

	return out, nil
}

// Select is a convenience for a single call with an uncompiled config.
func Select(b *event.Batch, cfg Config, year string) (event.Objects, error) {
	s, err := NewSelector(cfg, year)
	if err != nil {
		return nil, err
	}
	return s.Select(b)
}

func cleanAgainst(keep []bool, raw, against *event.Collection, minDR float64) error {
	eta, err := raw.Field("eta")
	if err != nil {
		return err
	}
	phi, err := raw.Field("phi")
	if err != nil {
		return err
	}
	otherEta, err := against.Field("eta")
	if err != nil {
		return err
	}
	otherPhi, err := against.Field("phi")
	if err != nil {
		return err
	}

	for e := 0; e < raw.Len(); e++ {
		oe, op := otherEta.Row(e), otherPhi.Row(e)
		for i := eta.Offsets[e]; i < eta.Offsets[e+1]; i++ {
			closest := math.Inf(1)
			for k := range oe {
				closest = math.Min(closest, event.DeltaR(eta.Values[i], phi.Values[i], oe[k], op[k]))
			}
			keep[i] = keep[i] && closest > minDR
		}
	}
	return nil
}
