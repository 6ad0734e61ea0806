// Package processor runs the analysis over one event batch: for every
// shift it applies the corrections, selects objects, composes the weights
// and category masks, and fills the histogram family.
//
// Weight variations are only filled for the nominal shift, and shifted
// views are only filled with nominal weights, so the two kinds of
// uncertainty are never combined.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/deoache/susy-vbf/corrections"
	"github.com/deoache/susy-vbf/event"
	"github.com/deoache/susy-vbf/expr"
	"github.com/deoache/susy-vbf/histo"
	"github.com/deoache/susy-vbf/objects"
	"github.com/deoache/susy-vbf/selection"
	"github.com/deoache/susy-vbf/shifts"
	"github.com/deoache/susy-vbf/weights"
)

var (
	ErrMissingYear            = errors.New("year is required")
	ErrNoCategories           = errors.New("at least one category is required")
	ErrBadConfig              = errors.New("bad processor config")
	ErrSystematicsWithoutAxis = errors.New("systematics need a variation axis (histograms.add_syst_axis)")
	ErrNothingToReduce        = errors.New("no results to reduce")
	ErrUnknownSample          = errors.New("unknown sample kind")
)

// Fill describes one histogram fill, passed to Processor.OnFill.
type Fill struct {
	Shift     string
	Category  string
	Variation string
	Events    int
	Weights   []float64
}

// Processor is immutable after New, apart from a one-time debug note, and
// may be shared by concurrent Process calls; every call builds its own
// ledgers and histograms.
type Processor struct {
	cfg        Config
	selector   *objects.Selector
	selections []string
	masks      map[string]expr.MaskFunc
	variables  map[string]expr.ValueFunc
	log        logrus.FieldLogger
	noAxis     sync.Once

	// OnFill, when set, observes every fill. It must be safe for
	// concurrent use if Process is.
	OnFill func(Fill)
}

// New compiles cfg. A nil registry uses the built-in expression functions.
func New(cfg Config, reg *expr.Registry, log logrus.FieldLogger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = expr.NewRegistry()
	}

	selector, err := objects.NewSelector(cfg.Objects, cfg.Year)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:       cfg,
		selector:  selector,
		masks:     make(map[string]expr.MaskFunc, len(cfg.Selections)),
		variables: make(map[string]expr.ValueFunc, len(cfg.Histograms.Axes)),
		log:       log.WithField("component", "processor"),
	}

	for name, spec := range cfg.Selections {
		f, err := reg.Mask(spec)
		if err != nil {
			return nil, fmt.Errorf("selection %q: %w", name, err)
		}
		p.masks[name] = f
		p.selections = append(p.selections, name)
	}
	sort.Strings(p.selections)

	for name, axis := range cfg.Histograms.Axes {
		f, err := reg.Value(axis.Expression)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		p.variables[name] = f
	}

	return p, nil
}

func (p *Processor) Config() Config { return p.cfg }

// Empty returns a result with no events, the identity of Merge.
func (p *Processor) Empty() (*Result, error) {
	family, err := histo.Build(p.cfg.Histograms, p.cfg.Categories.Names())
	if err != nil {
		return nil, err
	}
	return &Result{
		Metadata:   Metadata{Categories: make(map[string]CategoryMetadata, len(p.cfg.Categories))},
		Histograms: family,
	}, nil
}

// Process runs every shift of the sample over b. On error nothing of the
// batch is returned.
func (p *Processor) Process(ctx context.Context, b *event.Batch, s Sample) (*Result, error) {
	res, err := p.Empty()
	if err != nil {
		return nil, err
	}

	var (
		views      []shifts.Shift
		correctors []corrections.Corrector
		providers  []corrections.WeightProvider
		lumi       expr.LumiMasker
	)
	switch s := s.(type) {
	case MonteCarlo:
		set := s.Corrections
		if set == nil {
			set = &corrections.Set{}
		}
		views, err = shifts.NewEnumerator(set.JES, set.UES, set.JER).Enumerate(b, true, p.cfg.Systematics)
		if err != nil {
			return nil, err
		}
		correctors, providers = set.MC, set.Weights
	case RealData:
		views, _ = shifts.NewEnumerator(nil, nil, nil).Enumerate(b, false, false)
		correctors, lumi = s.Correctors, s.Lumi
	default:
		return nil, fmt.Errorf("%w %T", ErrUnknownSample, s)
	}

	isMC := s.isMC()
	for _, shift := range views {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ps := &pass{
			Processor:  p,
			shift:      shift,
			isMC:       isMC,
			lumi:       lumi,
			correctors: correctors,
			providers:  providers,
			result:     res,
		}
		if err := ps.run(b); err != nil {
			return nil, fmt.Errorf("shift %s: %w", shift.Label, err)
		}
	}

	p.log.WithFields(logrus.Fields{
		"file":   b.Metadata().File,
		"first":  b.Metadata().First,
		"events": b.Len(),
		"shifts": len(views),
	}).Debug("Processed batch")

	return res, nil
}

// pass is one shift of one batch. Its ledgers are discarded afterwards.
type pass struct {
	*Processor
	shift      shifts.Shift
	isMC       bool
	lumi       expr.LumiMasker
	correctors []corrections.Corrector
	providers  []corrections.WeightProvider
	result     *Result
}

func (ps *pass) run(b *event.Batch) error {
	view, err := ps.shift.Apply(b)
	if err != nil {
		return err
	}
	for _, c := range ps.correctors {
		if view, err = c.Correct(view); err != nil {
			return err
		}
	}

	objs, err := ps.selector.Select(view)
	if err != nil {
		return err
	}

	n := view.Len()
	ledger := weights.NewLedger(n)
	for _, wp := range ps.providers {
		f, err := wp.Weight(view, objs, ps.shift.Label)
		if err != nil {
			return err
		}
		if err := ledger.AddFactor(wp.Name(), f); err != nil {
			return err
		}
	}
	nominal := ledger.Weight()

	if ps.shift.IsNominal() {
		ps.result.Metadata.RawInitial = int64(n)
		ps.result.Metadata.SumW = floats.Sum(nominal)
	}

	env := &expr.Env{Batch: view, Objects: objs, Year: ps.cfg.Year, IsMC: ps.isMC, Lumi: ps.lumi}
	sel := selection.NewLedger(n)
	for _, name := range ps.selections {
		mask, err := ps.masks[name](env)
		if err != nil {
			return fmt.Errorf("selection %q: %w", name, err)
		}
		if err := sel.Add(name, mask); err != nil {
			return err
		}
	}

	var vars map[string][]float64
	for _, cat := range ps.cfg.Categories {
		var mask []bool
		if ps.shift.IsNominal() {
			var cutflow selection.Cutflow
			cutflow, mask, err = sel.Cutflow(nominal, cat.Cuts...)
			if err != nil {
				return err
			}
			ps.result.Metadata.Categories[cat.Name] = CategoryMetadata{
				Cutflow:       cutflow,
				WeightedFinal: selection.WeightedSum(mask, nominal),
				RawFinal:      selection.Count(mask),
			}
		} else if mask, err = sel.All(cat.Cuts...); err != nil {
			return err
		}

		selected := int(selection.Count(mask))
		if selected == 0 {
			continue
		}

		if vars == nil {
			if vars, err = ps.extract(env); err != nil {
				return err
			}
		}
		catVars := make(map[string][]float64, len(vars))
		for name, values := range vars {
			catVars[name] = take(values, mask)
		}

		for _, variation := range ps.variations(ledger) {
			w := nominal
			if ps.shift.IsNominal() && variation != weights.Nominal {
				if w, err = ledger.Variation(variation); err != nil {
					return err
				}
			}
			fill := Fill{Shift: ps.shift.Label, Category: cat.Name, Variation: variation, Events: selected, Weights: take(w, mask)}
			if err := ps.result.Histograms.FillVariables(cat.Name, variation, catVars, fill.Weights); err != nil {
				return err
			}
			if ps.OnFill != nil {
				ps.OnFill(fill)
			}
		}
	}
	return nil
}

// variations returns the labels the current pass fills under: every
// weight variation for the nominal view of simulation, the shift label
// otherwise.
func (ps *pass) variations(ledger *weights.Ledger) []string {
	if !ps.shift.IsNominal() {
		return []string{ps.shift.Label}
	}
	if !ps.isMC {
		return []string{weights.Nominal}
	}
	if !ps.result.Histograms.HasSystAxis() {
		if dropped := ledger.Variations(); len(dropped) > 0 {
			ps.noAxis.Do(func() {
				ps.log.WithField("variations", dropped).Debug("No variation axis, filling nominal weights only")
			})
		}
		return []string{weights.Nominal}
	}
	return append([]string{weights.Nominal}, ledger.Variations()...)
}

func (ps *pass) extract(env *expr.Env) (map[string][]float64, error) {
	out := make(map[string][]float64, len(ps.variables))
	for name, f := range ps.variables {
		values, err := f(env)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		out[name] = values
	}
	return out, nil
}

func take(values []float64, mask []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, ok := range mask {
		if ok {
			out = append(out, values[i])
		}
	}
	return out
}
