// Package reader turns event files into event.Batch chunks. ROOT files are
// read as NanoAOD-style flat trees, proio files through their tagged
// particle and track entries.
package reader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deoache/susy-vbf/event"
)

var (
	ErrUnknownFormat = errors.New("unknown file format")
	ErrNoTree        = errors.New("tree not found")
	ErrBadRange      = errors.New("bad entry range")
	ErrDuplicateTag  = errors.New("proio tags share a collection")
)

// Config controls how files are read.
type Config struct {
	Tree string `yaml:"tree" default:"Events"`
	// Chunk is the number of entries per batch.
	Chunk int64 `yaml:"chunk" default:"100000"`
	// Branches restricts the ROOT branches read; entries may be glob
	// patterns such as "Jet_*". Empty reads everything.
	Branches []string `yaml:"branches"`
	// Singletons are branch prefixes turned into one-object-per-event
	// collections (MET_pt, MET_phi -> MET).
	Singletons []string `yaml:"singletons" default:"[\"MET\",\"PuppiMET\",\"RawMET\"]"`
	// Tags maps proio entry tags to collection names.
	Tags map[string]string `yaml:"tags"`
}

func (c *Config) Validate() error {
	if c.Chunk < 1 {
		return fmt.Errorf("reader: chunk must be positive, got %d", c.Chunk)
	}
	for _, p := range c.Branches {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("reader: branch pattern %q: %w", p, err)
		}
	}

	tags := make([]string, 0, len(c.Tags))
	for tag := range c.Tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	owner := make(map[string]string, len(tags))
	for _, tag := range tags {
		name := c.Tags[tag]
		if prev, ok := owner[name]; ok {
			return fmt.Errorf("reader: %w: %q and %q both map to %q", ErrDuplicateTag, prev, tag, name)
		}
		owner[name] = tag
	}
	return nil
}

func (c *Config) wants(branch string) bool {
	if len(c.Branches) == 0 {
		return true
	}
	for _, p := range c.Branches {
		if ok, _ := path.Match(p, branch); ok {
			return true
		}
	}
	return false
}

// Source is one opened input file.
type Source interface {
	Entries() int64
	// ReadBatch reads entries [first, first+n). Every call starts from the
	// file, so a failed batch can be read again.
	ReadBatch(ctx context.Context, first, n int64) (*event.Batch, error)
}

// Open picks the format from the file extension.
func Open(file string, cfg Config, meta event.Metadata) (Source, error) {
	meta.File = file
	switch strings.ToLower(filepath.Ext(file)) {
	case ".root":
		return openROOT(file, cfg, meta)
	case ".proio":
		return openProio(file, cfg, meta)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, file)
}

// Chunks splits [0, entries) into ranges of at most size entries.
func Chunks(entries, size int64) [][2]int64 {
	var out [][2]int64
	for first := int64(0); first < entries; first += size {
		out = append(out, [2]int64{first, min(first+size, entries)})
	}
	return out
}

func checkRange(entries, first, n int64) error {
	if first < 0 || n < 0 || first+n > entries {
		return fmt.Errorf("%w: [%d, %d) of %d entries", ErrBadRange, first, first+n, entries)
	}
	return nil
}
