package expr

import (
	"fmt"
	"math"

	"github.com/deoache/susy-vbf/event"
)

func registerBuiltins(r *Registry) {
	r.RegisterValue("count", countValue)
	r.RegisterValue("field", fieldValue)
	r.RegisterValue("max", maxValue)
	r.RegisterValue("sum", sumValue)
	r.RegisterValue("scalar", scalarValue)
	r.RegisterValue("invariant_mass", invariantMass)
	r.RegisterValue("delta_eta", pairValue(func(a, b kinematics) float64 { return math.Abs(a.eta - b.eta) }))
	r.RegisterValue("delta_phi", pairValue(func(a, b kinematics) float64 { return math.Abs(event.DeltaPhi(a.phi, b.phi)) }))
	r.RegisterValue("transverse_mass", transverseMass)
	r.RegisterValue("abs", absValue)

	r.RegisterMask("compare", compareMask)
	r.RegisterMask("count", countMask)
	r.RegisterMask("trigger", triggerMask)
	r.RegisterMask("flags", flagsMask)
	r.RegisterMask("lumi_mask", lumiMask)
	r.RegisterMask("and", logicMask(true))
	r.RegisterMask("or", logicMask(false))
	r.RegisterMask("not", notMask)
}

// source resolves the collection an expression reads: a selected object
// set ("object") or a raw collection of the current view ("collection").
func source(s Spec) (func(env *Env) (*event.Collection, error), error) {
	if s.Has("object") {
		name, err := s.Str("object")
		if err != nil {
			return nil, err
		}
		return func(env *Env) (*event.Collection, error) { return env.Object(name) }, nil
	}
	name, err := s.Str("collection")
	if err != nil {
		return nil, fmt.Errorf("%s: needs an object or a collection: %w", s.Func, err)
	}
	return func(env *Env) (*event.Collection, error) { return env.Batch.Collection(name) }, nil
}

func jagged(s Spec) (func(env *Env) (event.Jagged, error), error) {
	src, err := source(s)
	if err != nil {
		return nil, err
	}
	field, err := s.Str("field")
	if err != nil {
		return nil, err
	}
	return func(env *Env) (event.Jagged, error) {
		c, err := src(env)
		if err != nil {
			return event.Jagged{}, err
		}
		return c.Field(field)
	}, nil
}

func countValue(_ *Registry, s Spec) (ValueFunc, error) {
	src, err := source(s)
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]float64, error) {
		c, err := src(env)
		if err != nil {
			return nil, err
		}
		return c.Counts(), nil
	}, nil
}

func fieldValue(_ *Registry, s Spec) (ValueFunc, error) {
	get, err := jagged(s)
	if err != nil {
		return nil, err
	}
	index, err := s.FloatOr("index", 0)
	if err != nil {
		return nil, err
	}
	fill, err := s.FloatOr("fill", math.NaN())
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]float64, error) {
		j, err := get(env)
		if err != nil {
			return nil, err
		}
		return j.At(int(index), fill), nil
	}, nil
}

func maxValue(_ *Registry, s Spec) (ValueFunc, error) {
	get, err := jagged(s)
	if err != nil {
		return nil, err
	}
	fill, err := s.FloatOr("fill", math.NaN())
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]float64, error) {
		j, err := get(env)
		if err != nil {
			return nil, err
		}
		return j.Max(fill), nil
	}, nil
}

func sumValue(_ *Registry, s Spec) (ValueFunc, error) {
	get, err := jagged(s)
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]float64, error) {
		j, err := get(env)
		if err != nil {
			return nil, err
		}
		return j.Sum(), nil
	}, nil
}

func scalarValue(_ *Registry, s Spec) (ValueFunc, error) {
	name, err := s.Str("name")
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]float64, error) {
		return env.Batch.Scalar(name)
	}, nil
}

func absValue(r *Registry, s Spec) (ValueFunc, error) {
	inner, err := s.Nested("of")
	if err != nil {
		return nil, err
	}
	of, err := r.Value(inner)
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]float64, error) {
		values, err := of(env)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = math.Abs(v)
		}
		return out, nil
	}, nil
}

type kinematics struct {
	pt, eta, phi, mass float64
}

func (k kinematics) p4() (px, py, pz, e float64) {
	px = k.pt * math.Cos(k.phi)
	py = k.pt * math.Sin(k.phi)
	pz = k.pt * math.Sinh(k.eta)
	p := k.pt * math.Cosh(k.eta)
	e = math.Sqrt(p*p + k.mass*k.mass)
	return px, py, pz, e
}

// pairs reads the (pt, eta, phi, mass) of the first two objects of every
// event; ok is false for events with fewer than two.
func pairs(c *event.Collection) (a, b []kinematics, ok []bool, err error) {
	cols := make(map[string]event.Jagged, 4)
	for _, name := range []string{"pt", "eta", "phi"} {
		j, err := c.Field(name)
		if err != nil {
			return nil, nil, nil, err
		}
		cols[name] = j
	}
	mass, massErr := c.Field("mass")

	n := c.Len()
	a, b, ok = make([]kinematics, n), make([]kinematics, n), make([]bool, n)
	for e := 0; e < n; e++ {
		pt := cols["pt"].Row(e)
		if len(pt) < 2 {
			continue
		}
		ok[e] = true
		eta, phi := cols["eta"].Row(e), cols["phi"].Row(e)
		a[e] = kinematics{pt: pt[0], eta: eta[0], phi: phi[0]}
		b[e] = kinematics{pt: pt[1], eta: eta[1], phi: phi[1]}
		if massErr == nil {
			m := mass.Row(e)
			a[e].mass, b[e].mass = m[0], m[1]
		}
	}
	return a, b, ok, nil
}

func pairValue(f func(a, b kinematics) float64) ValueBuilder {
	return func(_ *Registry, s Spec) (ValueFunc, error) {
		src, err := source(s)
		if err != nil {
			return nil, err
		}
		return func(env *Env) ([]float64, error) {
			c, err := src(env)
			if err != nil {
				return nil, err
			}
			a, b, ok, err := pairs(c)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(ok))
			for e := range out {
				if !ok[e] {
					out[e] = math.NaN()
					continue
				}
				out[e] = f(a[e], b[e])
			}
			return out, nil
		}, nil
	}
}

func invariantMass(r *Registry, s Spec) (ValueFunc, error) {
	return pairValue(func(a, b kinematics) float64 {
		px1, py1, pz1, e1 := a.p4()
		px2, py2, pz2, e2 := b.p4()
		px, py, pz, e := px1+px2, py1+py2, pz1+pz2, e1+e2
		m2 := e*e - px*px - py*py - pz*pz
		if m2 < 0 {
			return 0
		}
		return math.Sqrt(m2)
	})(r, s)
}

func transverseMass(_ *Registry, s Spec) (ValueFunc, error) {
	src, err := source(s)
	if err != nil {
		return nil, err
	}
	met, err := s.StrOr("met", "MET")
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]float64, error) {
		c, err := src(env)
		if err != nil {
			return nil, err
		}
		m, err := env.Batch.Collection(met)
		if err != nil {
			return nil, err
		}

		get := func(c *event.Collection, field string, fill float64) ([]float64, error) {
			j, err := c.Field(field)
			if err != nil {
				return nil, err
			}
			return j.At(0, fill), nil
		}
		pt, err := get(c, "pt", math.NaN())
		if err != nil {
			return nil, err
		}
		phi, err := get(c, "phi", math.NaN())
		if err != nil {
			return nil, err
		}
		metPt, err := get(m, "pt", 0)
		if err != nil {
			return nil, err
		}
		metPhi, err := get(m, "phi", 0)
		if err != nil {
			return nil, err
		}

		out := make([]float64, len(pt))
		for e := range out {
			out[e] = math.Sqrt(2 * pt[e] * metPt[e] * (1 - math.Cos(event.DeltaPhi(phi[e], metPhi[e]))))
		}
		return out, nil
	}, nil
}

func compareMask(r *Registry, s Spec) (MaskFunc, error) {
	inner, err := s.Nested("of")
	if err != nil {
		return nil, err
	}
	of, err := r.Value(inner)
	if err != nil {
		return nil, err
	}
	op, err := s.Op()
	if err != nil {
		return nil, err
	}
	threshold, err := s.Float("value")
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]bool, error) {
		values, err := of(env)
		if err != nil {
			return nil, err
		}
		return op.Mask(values, threshold), nil
	}, nil
}

func countMask(r *Registry, s Spec) (MaskFunc, error) {
	counts, err := countValue(r, s)
	if err != nil {
		return nil, err
	}
	op, err := s.Op()
	if err != nil {
		return nil, err
	}
	threshold, err := s.Float("value")
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]bool, error) {
		values, err := counts(env)
		if err != nil {
			return nil, err
		}
		return op.Mask(values, threshold), nil
	}, nil
}

func triggerMask(_ *Registry, s Spec) (MaskFunc, error) {
	paths, err := s.Strings("paths")
	if err != nil {
		return nil, err
	}
	prefix, err := s.StrOr("prefix", "HLT_")
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]bool, error) {
		out := make([]bool, env.Batch.Len())
		for _, path := range paths {
			fired, err := env.Batch.Scalar(prefix + path)
			if err != nil {
				return nil, err
			}
			for i, v := range fired {
				out[i] = out[i] || v != 0
			}
		}
		return out, nil
	}, nil
}

func flagsMask(_ *Registry, s Spec) (MaskFunc, error) {
	names, err := s.Strings("names")
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]bool, error) {
		out := make([]bool, env.Batch.Len())
		for i := range out {
			out[i] = true
		}
		for _, name := range names {
			flag, err := env.Batch.Scalar(name)
			if err != nil {
				return nil, err
			}
			for i, v := range flag {
				out[i] = out[i] && v != 0
			}
		}
		return out, nil
	}, nil
}

// lumiMask passes every simulated event; real data goes through the
// sample's luminosity mask.
func lumiMask(_ *Registry, s Spec) (MaskFunc, error) {
	runName, err := s.StrOr("run", "run")
	if err != nil {
		return nil, err
	}
	lumiName, err := s.StrOr("lumi", "luminosityBlock")
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]bool, error) {
		if env.IsMC || env.Lumi == nil {
			out := make([]bool, env.Batch.Len())
			for i := range out {
				out[i] = true
			}
			return out, nil
		}
		run, err := env.Batch.Scalar(runName)
		if err != nil {
			return nil, err
		}
		lumi, err := env.Batch.Scalar(lumiName)
		if err != nil {
			return nil, err
		}
		return env.Lumi.Mask(run, lumi), nil
	}, nil
}

func logicMask(and bool) MaskBuilder {
	return func(r *Registry, s Spec) (MaskFunc, error) {
		specs, err := s.NestedList("of")
		if err != nil {
			return nil, err
		}
		terms := make([]MaskFunc, len(specs))
		for i, spec := range specs {
			if terms[i], err = r.Mask(spec); err != nil {
				return nil, err
			}
		}
		return func(env *Env) ([]bool, error) {
			out := make([]bool, env.Batch.Len())
			for i := range out {
				out[i] = and
			}
			for _, term := range terms {
				mask, err := term(env)
				if err != nil {
					return nil, err
				}
				for i, pass := range mask {
					if and {
						out[i] = out[i] && pass
					} else {
						out[i] = out[i] || pass
					}
				}
			}
			return out, nil
		}, nil
	}
}

func notMask(r *Registry, s Spec) (MaskFunc, error) {
	inner, err := s.Nested("of")
	if err != nil {
		return nil, err
	}
	of, err := r.Mask(inner)
	if err != nil {
		return nil, err
	}
	return func(env *Env) ([]bool, error) {
		mask, err := of(env)
		if err != nil {
			return nil, err
		}
		out := make([]bool, len(mask))
		for i, pass := range mask {
			out[i] = !pass
		}
		return out, nil
	}, nil
}
