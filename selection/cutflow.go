package selection

import (
	"fmt"
)

// Step is the yield remaining after one cut of a category.
type Step struct {
	Cut      string  `yaml:"cut"`
	Raw      int64   `yaml:"raw"`
	Weighted float64 `yaml:"weighted"`
}

// Cutflow lists the cumulative yields of a category in declared cut order.
type Cutflow []Step

// Cutflow walks names left to right and records the yield of the running
// AND after each one.
func (l *Ledger) Cutflow(weights []float64, names ...string) (Cutflow, []bool, error) {
	if len(weights) != l.n {
		return nil, nil, fmt.Errorf("cutflow weights: %w (have %d, want %d)", ErrLengthMismatch, len(weights), l.n)
	}

	current := make([]bool, l.n)
	for i := range current {
		current[i] = true
	}

	flow := make(Cutflow, 0, len(names))
	for _, name := range names {
		mask, ok := l.masks[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w %q", ErrUnknownMask, name)
		}

		step := Step{Cut: name}
		for i, pass := range mask {
			current[i] = current[i] && pass
			if current[i] {
				step.Raw++
				step.Weighted += weights[i]
			}
		}
		flow = append(flow, step)
	}

	return flow, current, nil
}

// Count returns the number of true entries.
func Count(mask []bool) int64 {
	var n int64
	for _, pass := range mask {
		if pass {
			n++
		}
	}
	return n
}

// WeightedSum returns the sum of the weights of the passing events.
func WeightedSum(mask []bool, weights []float64) float64 {
	var sum float64
	for i, pass := range mask {
		if pass {
			sum += weights[i]
		}
	}
	return sum
}

// Merge adds two cutflows of the same category step by step.
func (c Cutflow) Merge(o Cutflow) (Cutflow, error) {
	if len(c) == 0 {
		return append(Cutflow(nil), o...), nil
	}
	if len(o) == 0 {
		return append(Cutflow(nil), c...), nil
	}
	if len(c) != len(o) {
		return nil, fmt.Errorf("cutflows have %d and %d steps", len(c), len(o))
	}

	out := make(Cutflow, len(c))
	for i := range c {
		if c[i].Cut != o[i].Cut {
			return nil, fmt.Errorf("cutflow step %d: %q != %q", i, c[i].Cut, o[i].Cut)
		}
		out[i] = Step{Cut: c[i].Cut, Raw: c[i].Raw + o[i].Raw, Weighted: c[i].Weighted + o[i].Weighted}
	}
	return out, nil
}
