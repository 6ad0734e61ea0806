package event

import (
	"fmt"
	"sort"
)

// Collection is a ragged set of objects (jets, leptons, ...) stored column
// by column. Object i of event e lives at index offsets[e]+i of every field.
// Collections are never modified in place; every transformation returns a
// new Collection that shares the untouched columns.
type Collection struct {
	name    string
	offsets []int
	fields  map[string][]float64
}

// NewCollection builds a collection from per-event object counts and flat
// field columns.
func NewCollection(name string, counts []int, fields map[string][]float64) (*Collection, error) {
	offsets := make([]int, len(counts)+1)
	for i, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("collection %q: negative count %d in event %d", name, n, i)
		}
		offsets[i+1] = offsets[i] + n
	}

	total := offsets[len(counts)]
	columns := make(map[string][]float64, len(fields))
	for field, values := range fields {
		if len(values) != total {
			return nil, fmt.Errorf("collection %q field %q: %w (have %d, want %d)", name, field, ErrLengthMismatch, len(values), total)
		}
		columns[field] = values
	}

	return &Collection{name: name, offsets: offsets, fields: columns}, nil
}

// Singleton builds a collection with exactly one object per event, the
// representation used for per-event records such as missing energy.
func Singleton(name string, n int, fields map[string][]float64) (*Collection, error) {
	counts := make([]int, n)
	for i := range counts {
		counts[i] = 1
	}
	return NewCollection(name, counts, fields)
}

func (c *Collection) Name() string { return c.name }

// Len returns the number of events.
func (c *Collection) Len() int { return len(c.offsets) - 1 }

// Total returns the number of objects over all events.
func (c *Collection) Total() int { return c.offsets[len(c.offsets)-1] }

// Counts returns the number of objects per event.
func (c *Collection) Counts() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = float64(c.offsets[i+1] - c.offsets[i])
	}
	return out
}

func (c *Collection) Has(field string) bool {
	_, ok := c.fields[field]
	return ok
}

// Fields returns the sorted field names.
func (c *Collection) Fields() []string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns one column of the collection viewed per event.
func (c *Collection) Field(field string) (Jagged, error) {
	values, ok := c.fields[field]
	if !ok {
		return Jagged{}, fmt.Errorf("collection %q: %w %q", c.name, ErrUnknownField, field)
	}
	return Jagged{Offsets: c.offsets, Values: values}, nil
}

// WithField returns a copy of the collection with field set to values.
func (c *Collection) WithField(field string, values []float64) (*Collection, error) {
	if len(values) != c.Total() {
		return nil, fmt.Errorf("collection %q field %q: %w (have %d, want %d)", c.name, field, ErrLengthMismatch, len(values), c.Total())
	}

	columns := make(map[string][]float64, len(c.fields)+1)
	for name, col := range c.fields {
		columns[name] = col
	}
	columns[field] = values

	return &Collection{name: c.name, offsets: c.offsets, fields: columns}, nil
}

// Filter keeps the objects whose entry in keep is true. keep is indexed
// like the flat field columns.
func (c *Collection) Filter(keep []bool) (*Collection, error) {
	if len(keep) != c.Total() {
		return nil, fmt.Errorf("collection %q filter: %w (have %d, want %d)", c.name, ErrLengthMismatch, len(keep), c.Total())
	}

	offsets := make([]int, len(c.offsets))
	for e := 0; e < c.Len(); e++ {
		n := 0
		for i := c.offsets[e]; i < c.offsets[e+1]; i++ {
			if keep[i] {
				n++
			}
		}
		offsets[e+1] = offsets[e] + n
	}

	total := offsets[len(offsets)-1]
	columns := make(map[string][]float64, len(c.fields))
	for name, col := range c.fields {
		out := make([]float64, 0, total)
		for i, v := range col {
			if keep[i] {
				out = append(out, v)
			}
		}
		columns[name] = out
	}

	return &Collection{name: c.name, offsets: offsets, fields: columns}, nil
}

// Take keeps the events whose entry in mask is true, with all their objects.
func (c *Collection) Take(mask []bool) (*Collection, error) {
	if len(mask) != c.Len() {
		return nil, fmt.Errorf("collection %q take: %w (have %d, want %d)", c.name, ErrLengthMismatch, len(mask), c.Len())
	}

	keep := make([]bool, c.Total())
	for e, ok := range mask {
		if !ok {
			continue
		}
		for i := c.offsets[e]; i < c.offsets[e+1]; i++ {
			keep[i] = true
		}
	}

	out, err := c.Filter(keep)
	if err != nil {
		return nil, err
	}

	// Filter keeps empty rows for dropped events; compact them away.
	offsets := make([]int, 1, len(mask)+1)
	for e, ok := range mask {
		if ok {
			offsets = append(offsets, offsets[len(offsets)-1]+out.offsets[e+1]-out.offsets[e])
		}
	}
	out.offsets = offsets

	return out, nil
}
