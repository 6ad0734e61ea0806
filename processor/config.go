package processor

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/expr"
	"github.com/deoache/susy-vbf/histo"
	"github.com/deoache/susy-vbf/objects"
)

// Category is a named ordered list of cuts.
type Category struct {
	Name string
	Cuts []string
}

// Categories keeps the declaration order of a YAML mapping
//
//	signal: [trigger, two_jets, one_muon]
type Categories []Category

func (c *Categories) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: categories must be a mapping", value.Line)
	}
	out := make(Categories, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		var cat Category
		if err := value.Content[i].Decode(&cat.Name); err != nil {
			return err
		}
		if err := value.Content[i+1].Decode(&cat.Cuts); err != nil {
			return fmt.Errorf("category %q: %w", cat.Name, err)
		}
		out = append(out, cat)
	}
	*c = out
	return nil
}

func (c Categories) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, cat := range c {
		var key, value yaml.Node
		if err := key.Encode(cat.Name); err != nil {
			return nil, err
		}
		if err := value.Encode(cat.Cuts); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &key, &value)
	}
	return node, nil
}

// Names returns the category names in declaration order.
func (c Categories) Names() []string {
	out := make([]string, len(c))
	for i, cat := range c {
		out[i] = cat.Name
	}
	return out
}

// Config is the analysis a Processor runs: which objects to select, which
// cuts to evaluate, how to group them into categories and what to fill.
type Config struct {
	Year        string               `yaml:"year"`
	Systematics bool                 `yaml:"systematics"`
	Objects     objects.Config       `yaml:"object_selection"`
	Selections  map[string]expr.Spec `yaml:"selections"`
	Categories  Categories           `yaml:"categories"`
	Histograms  histo.Config         `yaml:"histograms"`
}

func (c *Config) Validate() error {
	if c.Year == "" {
		return ErrMissingYear
	}
	if len(c.Categories) == 0 {
		return ErrNoCategories
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if seen[cat.Name] {
			return fmt.Errorf("%w: category %q declared twice", ErrBadConfig, cat.Name)
		}
		seen[cat.Name] = true
		for _, cut := range cat.Cuts {
			if _, ok := c.Selections[cut]; !ok {
				return fmt.Errorf("%w: category %q uses undeclared selection %q", ErrBadConfig, cat.Name, cut)
			}
		}
	}
	if err := c.Histograms.Validate(); err != nil {
		return err
	}
	if c.Systematics && !c.Histograms.AddSystAxis {
		return ErrSystematicsWithoutAxis
	}
	return nil
}
