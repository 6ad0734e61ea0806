package record

import (
	"fmt"
	"strings"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/hbook"

	"github.com/deoache/susy-vbf/histo"
)

// KeySep joins histogram, category and variation into a ROOT key.
const KeySep = "__"

// Key returns the ROOT key of one histogram cell.
func Key(histogram, category, variation string) string {
	return strings.Join([]string{histogram, category, variation}, KeySep)
}

// ExportROOT writes every filled cell of the record as a TH1D.
func ExportROOT(path string, rec *Record) error {
	r, err := rec.Result()
	if err != nil {
		return err
	}

	f, err := groot.Create(path)
	if err != nil {
		return err
	}
	if err := put(f, r.Histograms); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func put(dir riofs.Directory, f *histo.Family) error {
	for _, name := range f.Names() {
		h, err := f.Histogram(name)
		if err != nil {
			return err
		}
		for _, cat := range h.Categories() {
			for _, v := range h.Variations() {
				h1, err := h.H1D(cat, v)
				if err != nil {
					return err
				}
				if h1 == nil {
					continue
				}
				key := Key(name, cat, v)
				if h1.Ann == nil {
					h1.Ann = make(hbook.Annotation)
				}
				h1.Ann["name"] = key
				if err := dir.Put(key, rhist.NewH1DFrom(h1)); err != nil {
					return fmt.Errorf("histogram %q: %w", key, err)
				}
			}
		}
	}
	return nil
}
