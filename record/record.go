// Package record persists processor results. A record is a YAML document
// holding the run metadata, the histogram config and categories, and the
// binary hbook encoding of every filled histogram cell.
package record

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/histo"
	"github.com/deoache/susy-vbf/processor"
)

var (
	ErrMismatch = errors.New("records do not match")
	ErrEmpty    = errors.New("no records")
)

// Record is the serialisable form of a processor.Result.
type Record struct {
	Dataset    string             `yaml:"dataset"`
	Year       string             `yaml:"year"`
	IsMC       bool               `yaml:"is_mc"`
	Metadata   processor.Metadata `yaml:"metadata"`
	Config     histo.Config       `yaml:"histogram_config"`
	Categories []string           `yaml:"categories"`
	Histograms histo.Snapshot     `yaml:"histograms"`
}

// FromResult snapshots r.
func FromResult(dataset, year string, isMC bool, r *processor.Result) (*Record, error) {
	snap, err := r.Histograms.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Record{
		Dataset:    dataset,
		Year:       year,
		IsMC:       isMC,
		Metadata:   r.Metadata,
		Config:     r.Histograms.Config(),
		Categories: r.Histograms.Categories(),
		Histograms: snap,
	}, nil
}

// Result rebuilds the histograms of the record.
func (rec *Record) Result() (*processor.Result, error) {
	f, err := histo.Restore(rec.Config, rec.Categories, rec.Histograms)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.Dataset, err)
	}
	return &processor.Result{Metadata: rec.Metadata, Histograms: f}, nil
}

func Write(w io.Writer, rec *Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return err
	}
	return enc.Close()
}

func Read(r io.Reader) (*Record, error) {
	var rec Record
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

func WriteFile(path string, rec *Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, rec); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func ReadFile(path string) (*Record, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided record path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Merge sums records of the same dataset, year and sample kind, in the
// order given.
func Merge(records ...*Record) (*Record, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	first := records[0]
	results := make([]*processor.Result, 0, len(records))
	for _, rec := range records {
		if rec.Dataset != first.Dataset || rec.Year != first.Year || rec.IsMC != first.IsMC {
			return nil, fmt.Errorf("%w: %s/%s and %s/%s", ErrMismatch, first.Year, first.Dataset, rec.Year, rec.Dataset)
		}
		r, err := rec.Result()
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	merged, err := processor.Reduce(results...)
	if err != nil {
		return nil, err
	}
	return FromResult(first.Dataset, first.Year, first.IsMC, merged)
}

// MergeFiles reads and merges record files.
func MergeFiles(paths ...string) (*Record, error) {
	records := make([]*Record, 0, len(paths))
	for _, path := range paths {
		rec, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return Merge(records...)
}
