package histo

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Individual is the layout with one histogram per axis.
const Individual = "individual"

// Layout is either Individual or a mapping from histogram name to the
// ordered axes it spans.
type Layout struct {
	Groups map[string][]string
}

func (l Layout) IsIndividual() bool { return l.Groups == nil }

func (l *Layout) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value != Individual {
			return fmt.Errorf("%w: %q", ErrBadLayout, value.Value)
		}
		l.Groups = nil
		return nil
	}
	return value.Decode(&l.Groups)
}

func (l Layout) MarshalYAML() (interface{}, error) {
	if l.IsIndividual() {
		return Individual, nil
	}
	return l.Groups, nil
}

// Config declares a histogram family.
type Config struct {
	Layout      Layout          `yaml:"layout"`
	Axes        map[string]Axis `yaml:"axes"`
	AddSystAxis bool            `yaml:"add_syst_axis" default:"true"`
	AddWeight   bool            `yaml:"add_weight" default:"true"`
	// Flow folds underflow and overflow into the edge bins.
	Flow bool `yaml:"flow" default:"true"`
}

func (c *Config) Validate() error {
	if len(c.Axes) == 0 {
		return fmt.Errorf("%w: no axes", ErrBadAxis)
	}
	for name, a := range c.Axes {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("axis %q: %w", name, err)
		}
	}

	if c.Layout.IsIndividual() {
		return nil
	}
	if len(c.Layout.Groups) == 0 {
		return fmt.Errorf("%w: no groups", ErrBadLayout)
	}
	for group, axes := range c.Layout.Groups {
		if len(axes) == 0 {
			return fmt.Errorf("%w: group %q has no axes", ErrBadLayout, group)
		}
		seen := make(map[string]bool, len(axes))
		for _, name := range axes {
			if _, ok := c.Axes[name]; !ok {
				return fmt.Errorf("%w: group %q uses unknown axis %q", ErrBadLayout, group, name)
			}
			if seen[name] {
				return fmt.Errorf("%w: group %q repeats axis %q", ErrBadLayout, group, name)
			}
			seen[name] = true
		}
	}
	return nil
}

// Histograms returns, sorted by histogram name, the axes of every
// histogram the config declares.
func (c *Config) Histograms() []Spec {
	var out []Spec
	if c.Layout.IsIndividual() {
		for name := range c.Axes {
			out = append(out, Spec{Name: name, Axes: []string{name}})
		}
	} else {
		for name, axes := range c.Layout.Groups {
			out = append(out, Spec{Name: name, Axes: axes})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Spec names a histogram and its axes.
type Spec struct {
	Name string
	Axes []string
}
