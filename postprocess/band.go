package postprocess

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// OneSigma is the coverage of a one standard deviation interval.
var OneSigma = math.Erf(1 / math.Sqrt2)

// PoissonInterval returns the Garwood interval of every bin. For weighted
// histograms the counts are rescaled to the effective number of entries
// values^2/variances and the interval scaled back.
func PoissonInterval(values, variances []float64, coverage float64) (lo, hi []float64) {
	lo = make([]float64, len(values))
	hi = make([]float64, len(values))
	for i, v := range values {
		scale := 1.0
		if variances != nil && v != 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
			if variances[i] == 0 {
				lo[i], hi[i] = v, v
				continue
			}
			scale = variances[i] / v
		}
		counts := v / scale

		if counts > 0 {
			lo[i] = scale * distuv.ChiSquared{K: 2 * counts}.Quantile((1-coverage)/2) / 2
		}
		hi[i] = scale * distuv.ChiSquared{K: 2 * (counts + 1)}.Quantile((1+coverage)/2) / 2
		if math.IsNaN(lo[i]) {
			lo[i] = 0
		}
		if math.IsNaN(hi[i]) {
			hi[i] = 0
		}
	}
	return lo, hi
}

// Band is the total uncertainty around the stacked nominal.
type Band struct {
	Nominal []float64
	Up      []float64
	Down    []float64
}

// NewBand adds in quadrature the statistical interval of the nominal
// stack and, per variation, the distance to the nominal: upward labels
// contribute where they exceed the nominal, every other label where it
// falls below.
func NewBand(s *Stack) Band {
	nom := s.Nominal.Values
	statLo, statHi := PoissonInterval(nom, s.Nominal.Variances, OneSigma)

	up := make([]float64, len(nom))
	down := make([]float64, len(nom))
	for i := range nom {
		up[i] = math.Pow(statHi[i]-nom[i], 2)
		down[i] = math.Pow(nom[i]-statLo[i], 2)
	}

	for label, h := range s.Variations {
		for i, v := range h.Values {
			if IsUp(label) {
				up[i] += math.Pow(math.Max(nom[i], v)-nom[i], 2)
			} else {
				down[i] += math.Pow(nom[i]-math.Min(nom[i], v), 2)
			}
		}
	}

	b := Band{Nominal: clone(nom), Up: make([]float64, len(nom)), Down: make([]float64, len(nom))}
	for i := range nom {
		b.Up[i] = nom[i] + math.Sqrt(up[i])
		b.Down[i] = nom[i] - math.Sqrt(down[i])
	}
	return b
}

// Ratio returns the band relative to the nominal, 1 where the nominal is
// empty.
func (b Band) Ratio() (up, down []float64) {
	up = make([]float64, len(b.Nominal))
	down = make([]float64, len(b.Nominal))
	for i, n := range b.Nominal {
		if n == 0 {
			up[i], down[i] = 1, 1
			continue
		}
		up[i] = b.Up[i] / n
		down[i] = b.Down[i] / n
	}
	return up, down
}

// RatioInterval returns num/denom per bin with its interval for Poisson
// counts: the Clopper-Pearson interval of num/(num+denom), mapped back to
// the ratio. Bins with an empty denominator are all zero.
func RatioInterval(num, denom []float64, coverage float64) (ratio, lo, hi []float64) {
	ratio = make([]float64, len(num))
	lo = make([]float64, len(num))
	hi = make([]float64, len(num))
	odds := func(p float64) float64 { return p / (1 - p) }
	for i, n := range num {
		d := denom[i]
		if d <= 0 {
			continue
		}
		n = math.Max(n, 0)
		ratio[i] = n / d
		if n > 0 {
			lo[i] = odds(distuv.Beta{Alpha: n, Beta: d + 1}.Quantile((1 - coverage) / 2))
		}
		hi[i] = odds(distuv.Beta{Alpha: n + 1, Beta: d}.Quantile((1 + coverage) / 2))
	}
	return ratio, lo, hi
}
