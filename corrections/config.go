package corrections

import (
	"fmt"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/event"
)

// Weight provider kinds.
const (
	KindGenWeight = "genweight"
	KindEvent     = "event"
	KindObject    = "object"
)

// AnyYear keys the table used when a year has no table of its own.
const AnyYear = "*"

// Tables holds one table per data-taking year.
type Tables map[string]Table

// For returns the table of year, falling back to AnyYear.
func (t Tables) For(year string) (*Table, error) {
	if tab, ok := t[year]; ok {
		return &tab, nil
	}
	if tab, ok := t[AnyYear]; ok {
		return &tab, nil
	}
	return nil, fmt.Errorf("%w for year %q", ErrMissingTable, year)
}

type WeightConfig struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind" default:"event"`
	Scalar string `yaml:"scalar"`
	Object string `yaml:"object"`
	Field  string `yaml:"field"`
	Abs    bool   `yaml:"abs"`
	Tables Tables `yaml:"tables"`
}

func (w *WeightConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain WeightConfig
	if err := defaults.Set(w); err != nil {
		return err
	}
	return value.Decode((*plain)(w))
}

type JetScaleConfig struct {
	Jets   string `yaml:"jets" default:"Jet"`
	MET    string `yaml:"met" default:"MET"`
	Tables Tables `yaml:"tables"`
}

type UnclusteredConfig struct {
	Enabled bool   `yaml:"enabled"`
	MET     string `yaml:"met" default:"MET"`
	DeltaX  string `yaml:"delta_x" default:"MetUnclustEnUpDeltaX"`
	DeltaY  string `yaml:"delta_y" default:"MetUnclustEnUpDeltaY"`
}

type ShiftsConfig struct {
	JES JetScaleConfig    `yaml:"jes"`
	UES UnclusteredConfig `yaml:"ues"`
	JER JetScaleConfig    `yaml:"jer"`
}

type ScaleConfig struct {
	Collection string `yaml:"collection"`
	Field      string `yaml:"field" default:"pt"`
	By         string `yaml:"by" default:"eta"`
	Abs        bool   `yaml:"abs"`
	// Data applies the scale to real data as well.
	Data   bool   `yaml:"data"`
	Tables Tables `yaml:"tables"`
}

func (s *ScaleConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ScaleConfig
	if err := defaults.Set(s); err != nil {
		return err
	}
	return value.Decode((*plain)(s))
}

// Config declares every correction of an analysis.
type Config struct {
	Weights []WeightConfig `yaml:"weights"`
	Shifts  ShiftsConfig   `yaml:"shifts"`
	Scales  []ScaleConfig  `yaml:"scales"`
}

// Validate checks the year-independent parts of the config.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Weights))
	for _, w := range c.Weights {
		if w.Name == "" {
			return fmt.Errorf("%w: weight without name", ErrBadConfig)
		}
		if seen[w.Name] {
			return fmt.Errorf("%w: weight %q declared twice", ErrBadConfig, w.Name)
		}
		seen[w.Name] = true

		switch w.Kind {
		case KindGenWeight, KindEvent:
			if w.Scalar == "" {
				return fmt.Errorf("%w: weight %q needs a scalar", ErrBadConfig, w.Name)
			}
		case KindObject:
			if w.Object == "" || w.Field == "" {
				return fmt.Errorf("%w: weight %q needs an object and a field", ErrBadConfig, w.Name)
			}
		default:
			return fmt.Errorf("weight %q: %w %q", w.Name, ErrUnknownKind, w.Kind)
		}
	}
	for _, s := range c.Scales {
		if s.Collection == "" {
			return fmt.Errorf("%w: scale without collection", ErrBadConfig)
		}
	}
	return nil
}

// Shifter produces the substituted collections of one up/down shift.
type Shifter interface {
	Shift(b *event.Batch, up bool) (map[string]*event.Collection, error)
}

// Set is a Config resolved for one year.
type Set struct {
	Weights []WeightProvider
	// JES, UES and JER are nil when not configured.
	JES, UES, JER Shifter
	// MC and Data are the correctors applied to every shift view.
	MC, Data []Corrector
}

// Build resolves the tables of year and assembles the providers.
func Build(cfg Config, year string) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	set := &Set{}
	for _, w := range cfg.Weights {
		p, err := buildWeight(w, year)
		if err != nil {
			return nil, err
		}
		set.Weights = append(set.Weights, p)
	}

	var err error
	if set.JES, err = buildJetScale(cfg.Shifts.JES, year); err != nil {
		return nil, fmt.Errorf("jes: %w", err)
	}
	if set.JER, err = buildJetScale(cfg.Shifts.JER, year); err != nil {
		return nil, fmt.Errorf("jer: %w", err)
	}
	if u := cfg.Shifts.UES; u.Enabled {
		set.UES = &UnclusteredEnergy{MET: u.MET, DeltaX: u.DeltaX, DeltaY: u.DeltaY}
	}

	for _, s := range cfg.Scales {
		tab, err := s.Tables.For(year)
		if err != nil {
			return nil, fmt.Errorf("scale %s.%s: %w", s.Collection, s.Field, err)
		}
		if err := tab.Validate(); err != nil {
			return nil, fmt.Errorf("scale %s.%s: %w", s.Collection, s.Field, err)
		}
		c := &FieldScale{Collection: s.Collection, Field: s.Field, By: s.By, Abs: s.Abs, Table: tab}
		set.MC = append(set.MC, c)
		if s.Data {
			set.Data = append(set.Data, c)
		}
	}

	return set, nil
}

func buildWeight(w WeightConfig, year string) (WeightProvider, error) {
	if w.Kind == KindGenWeight {
		return &GenWeight{Label: w.Name, Scalar: w.Scalar}, nil
	}

	tab, err := w.Tables.For(year)
	if err != nil {
		return nil, fmt.Errorf("weight %q: %w", w.Name, err)
	}
	if err := tab.Validate(); err != nil {
		return nil, fmt.Errorf("weight %q: %w", w.Name, err)
	}

	if w.Kind == KindEvent {
		return &EventScaleFactor{Label: w.Name, Scalar: w.Scalar, Table: tab}, nil
	}
	return &ObjectScaleFactor{Label: w.Name, Object: w.Object, Field: w.Field, Abs: w.Abs, Table: tab}, nil
}

func buildJetScale(c JetScaleConfig, year string) (Shifter, error) {
	if len(c.Tables) == 0 {
		return nil, nil
	}
	tab, err := c.Tables.For(year)
	if err != nil {
		return nil, err
	}
	if err := tab.Validate(); err != nil {
		return nil, err
	}
	return &JetScale{Jets: c.Jets, MET: c.MET, Uncertainty: tab}, nil
}
