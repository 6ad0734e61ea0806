// Package dataset loads dataset descriptions and file lists and splits
// file lists into job partitions.
package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingName    = errors.New("dataset name is required")
	ErrMissingProcess = errors.New("dataset process is required")
	ErrMissingYear    = errors.New("dataset year is required")
	ErrMissingXSec    = errors.New("simulated dataset needs a cross section")
	ErrDuplicate      = errors.New("dataset declared twice")
	ErrUnknown        = errors.New("unknown dataset")
	ErrBadPartitions  = errors.New("partitions must be positive")
)

// Queries accepts either one query string or a list of them.
type Queries []string

func (q *Queries) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*q = Queries{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*q = list
	return nil
}

// Config describes one dataset. XSec is in pb and unset for real data.
type Config struct {
	Name       string   `yaml:"name"`
	Process    string   `yaml:"process"`
	Query      Queries  `yaml:"query"`
	Year       string   `yaml:"year"`
	IsMC       bool     `yaml:"is_mc"`
	XSec       *float64 `yaml:"xsec,omitempty"`
	Partitions int      `yaml:"partitions" default:"1"`
}

func (c *Config) Validate() error {
	switch {
	case c.Name == "":
		return ErrMissingName
	case c.Process == "":
		return fmt.Errorf("%s: %w", c.Name, ErrMissingProcess)
	case c.Year == "":
		return fmt.Errorf("%s: %w", c.Name, ErrMissingYear)
	case c.IsMC && c.XSec == nil:
		return fmt.Errorf("%s: %w", c.Name, ErrMissingXSec)
	case c.Partitions < 1:
		return fmt.Errorf("%s: %w", c.Name, ErrBadPartitions)
	}
	return nil
}

// LoadConfig reads one dataset file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Catalog indexes datasets by year and name.
type Catalog map[string]map[string]*Config

// LoadCatalog reads every .yaml/.yml file below dir.
func LoadCatalog(dir string) (Catalog, error) {
	out := make(Catalog)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			return err
		}
		return out.Add(cfg)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c Catalog) Add(cfg *Config) error {
	byName, ok := c[cfg.Year]
	if !ok {
		byName = make(map[string]*Config)
		c[cfg.Year] = byName
	}
	if _, ok := byName[cfg.Name]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrDuplicate, cfg.Name, cfg.Year)
	}
	byName[cfg.Name] = cfg
	return nil
}

func (c Catalog) Get(year, name string) (*Config, error) {
	cfg, ok := c[year][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnknown, name, year)
	}
	return cfg, nil
}

// Names returns the sorted dataset names of a year.
func (c Catalog) Names(year string) []string {
	out := make([]string, 0, len(c[year]))
	for name := range c[year] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FilesPerPartition turns the partition hint into a DivideList size for a
// dataset of total files.
func (c *Config) FilesPerPartition(total int) int {
	if c.Partitions <= 1 || total <= c.Partitions {
		return max(total, 1)
	}
	return (total + c.Partitions - 1) / c.Partitions
}
