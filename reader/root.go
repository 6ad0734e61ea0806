package reader

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/deoache/susy-vbf/event"
)

type rootSource struct {
	file    string
	cfg     Config
	meta    event.Metadata
	entries int64
}

func openROOT(file string, cfg Config, meta event.Metadata) (*rootSource, error) {
	f, err := groot.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tree, err := getTree(f, cfg.Tree)
	if err != nil {
		return nil, err
	}
	return &rootSource{file: file, cfg: cfg, meta: meta, entries: tree.Entries()}, nil
}

func getTree(f *riofs.File, name string) (rtree.Tree, error) {
	obj, err := f.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNoTree, name, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return nil, fmt.Errorf("%w: %q is a %T", ErrNoTree, name, obj)
	}
	return tree, nil
}

func (s *rootSource) Entries() int64 { return s.entries }

// readVars selects the wanted branches plus the count branches they
// depend on.
func (s *rootSource) readVars(tree rtree.Tree) []rtree.ReadVar {
	all := rtree.NewReadVars(tree)
	wanted := make(map[string]bool)
	for _, rv := range all {
		if !s.cfg.wants(rv.Name) {
			continue
		}
		wanted[rv.Name] = true
		if leaf := tree.Leaf(rv.Leaf); leaf != nil && leaf.LeafCount() != nil {
			wanted[leaf.LeafCount().Name()] = true
		}
	}

	out := make([]rtree.ReadVar, 0, len(wanted))
	for _, rv := range all {
		if wanted[rv.Name] {
			out = append(out, rv)
		}
	}
	return out
}

// column accumulates one branch over the entries of a batch.
type column struct {
	name   string
	jagged bool
	counts []int
	values []float64
}

func (c *column) add(ptr interface{}) {
	v := reflect.ValueOf(ptr).Elem()
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		c.jagged = true
		c.counts = append(c.counts, v.Len())
		for i := 0; i < v.Len(); i++ {
			c.values = append(c.values, toFloat(v.Index(i)))
		}
		return
	}
	c.values = append(c.values, toFloat(v))
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return math.NaN()
}

func (s *rootSource) ReadBatch(ctx context.Context, first, n int64) (*event.Batch, error) {
	if err := checkRange(s.entries, first, n); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := groot.Open(s.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tree, err := getTree(f, s.cfg.Tree)
	if err != nil {
		return nil, err
	}

	rvars := s.readVars(tree)
	r, err := rtree.NewReader(tree, rvars, rtree.WithRange(first, first+n))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.file, err)
	}
	defer r.Close()

	cols := make([]*column, len(rvars))
	for i, rv := range rvars {
		cols[i] = &column{name: rv.Name}
	}

	err = r.Read(func(rctx rtree.RCtx) error {
		if rctx.Entry%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for i, rv := range rvars {
			cols[i].add(rv.Value)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.file, err)
	}

	meta := s.meta
	meta.First = first
	return assemble(meta, int(n), cols, s.cfg.Singletons)
}

// assemble groups flat branches into scalars and collections: ragged
// branches Jet_pt, Jet_eta form the Jet collection, scalar branches with a
// singleton prefix form one-object collections, every other scalar branch
// stays a scalar column.
func assemble(meta event.Metadata, n int, cols []*column, singletons []string) (*event.Batch, error) {
	scalars := make(map[string][]float64)
	type group struct {
		counts []int
		fields map[string][]float64
	}
	groups := make(map[string]*group)
	single := make(map[string]map[string][]float64)

	for _, c := range cols {
		prefix, field, found := strings.Cut(c.name, "_")
		if !found {
			prefix, field = c.name, "value"
		}

		if c.jagged {
			g, ok := groups[prefix]
			if !ok {
				g = &group{counts: c.counts, fields: make(map[string][]float64)}
				groups[prefix] = g
			} else if !slices.Equal(g.counts, c.counts) {
				return nil, fmt.Errorf("branch %q: %w: object counts differ from the rest of %q", c.name, event.ErrLengthMismatch, prefix)
			}
			g.fields[field] = c.values
			continue
		}

		scalars[c.name] = c.values
		if found && slices.Contains(singletons, prefix) {
			if single[prefix] == nil {
				single[prefix] = make(map[string][]float64)
			}
			single[prefix][field] = c.values
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var collections []*event.Collection
	for _, name := range names {
		g := groups[name]
		c, err := event.NewCollection(name, g.counts, g.fields)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	for name, fields := range single {
		if _, ok := groups[name]; ok {
			continue
		}
		c, err := event.Singleton(name, n, fields)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}

	return event.NewBatch(meta, n, scalars, collections...)
}
