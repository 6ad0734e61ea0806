// Package selection registers named per-event masks and composes them into
// categories and cutflows.
package selection

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName  = errors.New("duplicate selection name")
	ErrUnknownMask    = errors.New("unknown selection")
	ErrLengthMismatch = errors.New("selection length mismatch")
)

// Ledger holds the leaf masks of one batch-shift pass.
type Ledger struct {
	n     int
	order []string
	masks map[string][]bool
}

func NewLedger(n int) *Ledger {
	return &Ledger{n: n, masks: make(map[string][]bool)}
}

func (l *Ledger) Len() int { return l.n }

// Add registers a leaf mask.
func (l *Ledger) Add(name string, mask []bool) error {
	if _, ok := l.masks[name]; ok {
		return fmt.Errorf("%w %q", ErrDuplicateName, name)
	}
	if len(mask) != l.n {
		return fmt.Errorf("selection %q: %w (have %d, want %d)", name, ErrLengthMismatch, len(mask), l.n)
	}
	l.order = append(l.order, name)
	l.masks[name] = mask
	return nil
}

// Names returns the registered names in registration order.
func (l *Ledger) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// All returns the AND of the named masks. With no names every event passes.
func (l *Ledger) All(names ...string) ([]bool, error) {
	out := make([]bool, l.n)
	for i := range out {
		out[i] = true
	}
	for _, name := range names {
		mask, ok := l.masks[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownMask, name)
		}
		for i, pass := range mask {
			out[i] = out[i] && pass
		}
	}
	return out, nil
}
