package event

import (
	"fmt"
	"sort"
)

// Metadata identifies where a batch came from.
type Metadata struct {
	Dataset string
	Year    string
	File    string
	// First is the index of the batch's first entry in File.
	First int64
}

// Batch is an immutable columnar view of a contiguous range of events.
// Corrections and shifts never modify a Batch; they derive new views with
// With or WithScalar so the same input can be reprocessed under every shift.
type Batch struct {
	meta        Metadata
	n           int
	scalars     map[string][]float64
	collections map[string]*Collection
}

// NewBatch assembles a batch of n events.
func NewBatch(meta Metadata, n int, scalars map[string][]float64, collections ...*Collection) (*Batch, error) {
	b := &Batch{
		meta:        meta,
		n:           n,
		scalars:     make(map[string][]float64, len(scalars)),
		collections: make(map[string]*Collection, len(collections)),
	}

	for name, values := range scalars {
		if len(values) != n {
			return nil, fmt.Errorf("scalar %q: %w (have %d, want %d)", name, ErrLengthMismatch, len(values), n)
		}
		b.scalars[name] = values
	}

	for _, c := range collections {
		if c.Len() != n {
			return nil, fmt.Errorf("collection %q: %w (have %d events, want %d)", c.Name(), ErrLengthMismatch, c.Len(), n)
		}
		b.collections[c.Name()] = c
	}

	return b, nil
}

func (b *Batch) Metadata() Metadata { return b.meta }

// Len returns the number of events.
func (b *Batch) Len() int { return b.n }

func (b *Batch) HasScalar(name string) bool {
	_, ok := b.scalars[name]
	return ok
}

func (b *Batch) Scalar(name string) ([]float64, error) {
	values, ok := b.scalars[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownScalar, name)
	}
	return values, nil
}

// Scalars returns the sorted scalar names.
func (b *Batch) Scalars() []string {
	names := make([]string, 0, len(b.scalars))
	for name := range b.scalars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Batch) HasCollection(name string) bool {
	_, ok := b.collections[name]
	return ok
}

func (b *Batch) Collection(name string) (*Collection, error) {
	c, ok := b.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Collections returns the sorted collection names.
func (b *Batch) Collections() []string {
	names := make([]string, 0, len(b.collections))
	for name := range b.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a new view of the batch where the named collections are
// replaced. Collections not named in subs are shared with b.
func (b *Batch) With(subs map[string]*Collection) (*Batch, error) {
	if len(subs) == 0 {
		return b, nil
	}

	out := &Batch{
		meta:        b.meta,
		n:           b.n,
		scalars:     b.scalars,
		collections: make(map[string]*Collection, len(b.collections)+len(subs)),
	}
	for name, c := range b.collections {
		out.collections[name] = c
	}
	for name, c := range subs {
		if c.Len() != b.n {
			return nil, fmt.Errorf("substitute %q: %w (have %d events, want %d)", name, ErrLengthMismatch, c.Len(), b.n)
		}
		out.collections[name] = c
	}

	return out, nil
}

// WithScalar returns a new view of the batch with one scalar column set.
func (b *Batch) WithScalar(name string, values []float64) (*Batch, error) {
	if len(values) != b.n {
		return nil, fmt.Errorf("scalar %q: %w (have %d, want %d)", name, ErrLengthMismatch, len(values), b.n)
	}

	out := &Batch{
		meta:        b.meta,
		n:           b.n,
		scalars:     make(map[string][]float64, len(b.scalars)+1),
		collections: b.collections,
	}
	for k, v := range b.scalars {
		out.scalars[k] = v
	}
	out.scalars[name] = values

	return out, nil
}
