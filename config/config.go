// Package config loads the configuration of an analysis run: the
// processor definition plus the corrections, input and worker settings
// around it.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/corrections"
	"github.com/deoache/susy-vbf/expr"
	"github.com/deoache/susy-vbf/processor"
	"github.com/deoache/susy-vbf/reader"
	"github.com/deoache/susy-vbf/runner"
)

// TriggerSelection is the selection generated from HLT.
const TriggerSelection = "trigger"

var ErrTriggerDefined = errors.New("hlt is set but a \"trigger\" selection is already declared")

// Processor is the configuration file of `vbf run`.
type Processor struct {
	processor.Config `yaml:",inline"`

	// HLT lists the trigger paths (without the HLT_ prefix) OR-ed into the
	// "trigger" selection.
	HLT []string `yaml:"hlt"`
	// GoldenJSON is the certified luminosity file applied to real data.
	GoldenJSON  string             `yaml:"golden_json"`
	Corrections corrections.Config `yaml:"corrections"`
	Reader      reader.Config      `yaml:"reader"`
	Runner      runner.Config      `yaml:"runner"`
}

// Validate checks every section and expands HLT into its selection.
func (c *Processor) Validate() error {
	if len(c.HLT) > 0 {
		if _, ok := c.Selections[TriggerSelection]; ok {
			return ErrTriggerDefined
		}
		paths := make([]interface{}, len(c.HLT))
		for i, p := range c.HLT {
			paths[i] = p
		}
		if c.Selections == nil {
			c.Selections = make(map[string]expr.Spec)
		}
		c.Selections[TriggerSelection] = expr.Spec{Func: "trigger", Args: map[string]interface{}{"paths": paths}}
		c.HLT = nil
	}

	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := c.Corrections.Validate(); err != nil {
		return err
	}
	if err := c.Reader.Validate(); err != nil {
		return err
	}
	return c.Runner.Validate()
}

// Load reads a processor config file.
func Load(path string) (*Processor, error) {
	cfg := &Processor{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Sample builds the sample of a dataset: corrections for MC, the golden
// JSON and data-side corrections for real data.
func (c *Processor) Sample(isMC bool) (processor.Sample, error) {
	set, err := corrections.Build(c.Corrections, c.Year)
	if err != nil {
		return nil, err
	}
	if isMC {
		return processor.MonteCarlo{Corrections: set}, nil
	}

	data := processor.RealData{Correctors: set.Data}
	if c.GoldenJSON != "" {
		golden, err := corrections.LoadGoldenJSON(c.GoldenJSON)
		if err != nil {
			return nil, err
		}
		data.Lumi = golden
	}
	return data, nil
}
