package histo

import (
	"encoding/base64"
	"fmt"

	"go-hep.org/x/hep/hbook"
)

// CellSnapshot is one filled (category, variation) cell: the hbook
// binary encoding of its H1D, base64 so the bins survive text files
// bit for bit.
type CellSnapshot struct {
	Category  string `yaml:"category"`
	Variation string `yaml:"variation"`
	Data      string `yaml:"data"`
}

type HistogramSnapshot struct {
	Name  string         `yaml:"name"`
	Cells []CellSnapshot `yaml:"cells"`
}

// Snapshot is the serialisable content of a Family. Rebuilding it needs
// the Config and categories the family was built from.
type Snapshot struct {
	Histograms []HistogramSnapshot `yaml:"histograms"`
}

// Snapshot encodes every filled cell, ordered by histogram, category and
// variation so equal families give equal snapshots.
func (f *Family) Snapshot() (Snapshot, error) {
	var out Snapshot
	for _, name := range f.names {
		h := f.hists[name]
		hs := HistogramSnapshot{Name: name}
		for _, cat := range h.categories {
			for _, v := range h.Variations() {
				c, ok := h.cells[cellKey{cat, v}]
				if !ok {
					continue
				}
				raw, err := c.MarshalBinary()
				if err != nil {
					return Snapshot{}, fmt.Errorf("histogram %q cell (%s, %s): %w", name, cat, v, err)
				}
				hs.Cells = append(hs.Cells, CellSnapshot{Category: cat, Variation: v, Data: base64.StdEncoding.EncodeToString(raw)})
			}
		}
		out.Histograms = append(out.Histograms, hs)
	}
	return out, nil
}

// Restore rebuilds a family from its config, categories and snapshot.
func Restore(cfg Config, categories []string, snap Snapshot) (*Family, error) {
	f, err := Build(cfg, categories)
	if err != nil {
		return nil, err
	}

	for _, hs := range snap.Histograms {
		h, err := f.Histogram(hs.Name)
		if err != nil {
			return nil, err
		}
		for _, cs := range hs.Cells {
			if err := h.checkKey(cs.Category, cs.Variation); err != nil {
				return nil, err
			}
			c, err := decodeCell(cs.Data)
			if err != nil {
				return nil, fmt.Errorf("histogram %q cell (%s, %s): %w", hs.Name, cs.Category, cs.Variation, err)
			}
			if len(c.Binning.Bins) != h.size {
				return nil, fmt.Errorf("histogram %q cell (%s, %s): %w: %d bins, want %d",
					hs.Name, cs.Category, cs.Variation, ErrAxisMismatch, len(c.Binning.Bins), h.size)
			}
			h.cells[cellKey{cs.Category, cs.Variation}] = c
			h.variations[cs.Variation] = struct{}{}
		}
	}
	return f, nil
}

// decodeCell reverses the cell encoding. The generated hbook decoder
// slices on its length prefixes without checking them, so truncated input
// panics inside it.
func decodeCell(data string) (c *hbook.H1D, err error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("%w: %v", ErrBadCell, r)
		}
	}()
	c = new(hbook.H1D)
	if err := c.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return c, nil
}
