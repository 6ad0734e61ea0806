// Package weights accumulates the multiplicative contributions to the
// per-event weight of one batch-shift pass.
package weights

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrDuplicateName    = errors.New("duplicate weight name")
	ErrUnknownVariation = errors.New("unknown weight variation")
	ErrLengthMismatch   = errors.New("weight length mismatch")
)

// Nominal is the label of the unvaried weight.
const Nominal = "nominal"

// Factor is one named contribution as returned by a calibration provider.
// Up and Down are optional and must be set together.
type Factor struct {
	Nominal []float64
	Up      []float64
	Down    []float64
}

type contribution struct {
	name    string
	nominal []float64
	up      []float64
	down    []float64
}

type alternate struct {
	owner  int
	values []float64
}

// Ledger is append-only and belongs to a single batch-shift pass.
type Ledger struct {
	n             int
	contributions []contribution
	names         map[string]struct{}
	variations    []string
	alternates    map[string]alternate
}

func NewLedger(n int) *Ledger {
	return &Ledger{
		n:          n,
		names:      make(map[string]struct{}),
		alternates: make(map[string]alternate),
	}
}

// Len returns the number of events.
func (l *Ledger) Len() int { return l.n }

// Add registers a contribution. up and down may both be nil; when present
// they register the variations name+"Up" and name+"Down".
func (l *Ledger) Add(name string, nominal, up, down []float64) error {
	if _, ok := l.names[name]; ok {
		return fmt.Errorf("%w %q", ErrDuplicateName, name)
	}
	if (up == nil) != (down == nil) {
		return fmt.Errorf("weight %q: up and down variations must be given together", name)
	}
	for _, v := range [][]float64{nominal, up, down} {
		if v != nil && len(v) != l.n {
			return fmt.Errorf("weight %q: %w (have %d, want %d)", name, ErrLengthMismatch, len(v), l.n)
		}
	}
	if nominal == nil {
		return fmt.Errorf("weight %q: %w (no nominal vector)", name, ErrLengthMismatch)
	}

	idx := len(l.contributions)
	l.contributions = append(l.contributions, contribution{name: name, nominal: nominal, up: up, down: down})
	l.names[name] = struct{}{}

	if up != nil {
		for _, alt := range []struct {
			label  string
			values []float64
		}{{name + "Up", up}, {name + "Down", down}} {
			if _, ok := l.alternates[alt.label]; ok {
				continue
			}
			l.alternates[alt.label] = alternate{owner: idx, values: alt.values}
			l.variations = append(l.variations, alt.label)
		}
	}

	return nil
}

// AddFactor registers a provider result under name.
func (l *Ledger) AddFactor(name string, f Factor) error {
	return l.Add(name, f.Nominal, f.Up, f.Down)
}

// Names returns the registered contribution names in registration order.
func (l *Ledger) Names() []string {
	out := make([]string, len(l.contributions))
	for i, c := range l.contributions {
		out[i] = c.name
	}
	return out
}

// Weight returns the product of every nominal vector, ones if nothing was
// registered.
func (l *Ledger) Weight() []float64 {
	return l.product(-1, nil)
}

// Variation returns the combined weight with the contribution owning label
// swapped for its alternate vector. The label Nominal returns Weight().
func (l *Ledger) Variation(label string) ([]float64, error) {
	if label == Nominal {
		return l.Weight(), nil
	}
	alt, ok := l.alternates[label]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownVariation, label)
	}
	return l.product(alt.owner, alt.values), nil
}

// Variations returns the registered variation labels in registration order.
func (l *Ledger) Variations() []string {
	out := make([]string, len(l.variations))
	copy(out, l.variations)
	return out
}

func (l *Ledger) product(swap int, values []float64) []float64 {
	out := make([]float64, l.n)
	for i := range out {
		out[i] = 1
	}
	for i, c := range l.contributions {
		if i == swap {
			floats.Mul(out, values)
			continue
		}
		floats.Mul(out, c.nominal)
	}
	return out
}
