// Package shifts enumerates the alternate reconstructions of a batch that
// the whole processing pipeline is rerun against.
package shifts

import (
	"fmt"

	"github.com/deoache/susy-vbf/event"
)

// Nominal labels the unshifted view.
const Nominal = "nominal"

// Source names, in enumeration order.
const (
	JES = "JES"
	UES = "UES"
	JER = "JER"
)

// Substitution maps a collection name to its shifted replacement.
type Substitution = map[string]*event.Collection

// Shift is one view of a batch. The nominal shift has an empty
// substitution.
type Shift struct {
	Label        string
	Substitution Substitution
}

// IsNominal reports whether s is the unshifted view.
func (s Shift) IsNominal() bool { return s.Label == Nominal }

// Apply returns the batch view of the shift.
func (s Shift) Apply(b *event.Batch) (*event.Batch, error) {
	return b.With(s.Substitution)
}

// Shifter produces the substituted collections for one uncertainty source.
type Shifter interface {
	Shift(b *event.Batch, up bool) (Substitution, error)
}

type source struct {
	name    string
	shifter Shifter
}

// Enumerator yields the nominal view followed by the up/down pair of every
// configured source, always in the order JES, UES, JER.
type Enumerator struct {
	sources []source
}

// NewEnumerator takes the shifters of each source; a nil shifter leaves
// its pair out.
func NewEnumerator(jes, ues, jer Shifter) *Enumerator {
	e := &Enumerator{}
	for _, s := range []source{{JES, jes}, {UES, ues}, {JER, jer}} {
		if s.shifter != nil {
			e.sources = append(e.sources, s)
		}
	}
	return e
}

// Labels returns the labels Enumerate yields with systematics enabled.
func (e *Enumerator) Labels() []string {
	out := []string{Nominal}
	for _, s := range e.sources {
		out = append(out, s.name+"Up", s.name+"Down")
	}
	return out
}

// Enumerate returns the shifts of b. Real data and runs without
// systematics only see the nominal view.
func (e *Enumerator) Enumerate(b *event.Batch, isMC, systematics bool) ([]Shift, error) {
	out := []Shift{{Label: Nominal}}
	if !isMC || !systematics {
		return out, nil
	}

	for _, s := range e.sources {
		for _, up := range []bool{true, false} {
			label := s.name + "Down"
			if up {
				label = s.name + "Up"
			}
			subs, err := s.shifter.Shift(b, up)
			if err != nil {
				return nil, fmt.Errorf("shift %s: %w", label, err)
			}
			out = append(out, Shift{Label: label, Substitution: subs})
		}
	}
	return out, nil
}
