package postprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/histo"
	"github.com/deoache/susy-vbf/processor"
)

const histConfig = `
layout: individual
axes:
  mjj: {type: Variable, edges: [0, 100, 300], expression: {func: invariant_mass, object: jets}}
add_syst_axis: true
add_weight: true
flow: false
`

func result(t *testing.T, sumw float64, fills map[string][]float64) *processor.Result {
	t.Helper()
	var cfg histo.Config
	require.NoError(t, yaml.Unmarshal([]byte(histConfig), &cfg))
	f, err := histo.Build(cfg, []string{"signal"})
	require.NoError(t, err)
	for variation, values := range fills {
		w := make([]float64, len(values))
		for i := range w {
			w[i] = 1
		}
		require.NoError(t, f.Fill("mjj", "signal", variation, values, w))
	}
	return &processor.Result{Metadata: processor.Metadata{SumW: sumw}, Histograms: f}
}

func TestNormalize(t *testing.T) {
	r := result(t, 4, map[string][]float64{"nominal": {50, 50, 150}})
	n, err := Normalize(r, 2, 10)
	require.NoError(t, err)

	h, err := n.Histograms.Histogram("mjj")
	require.NoError(t, err)
	got, err := Project(h, "signal", "nominal")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 5}, got.Values, 1e-12)
	assert.InDeltaSlice(t, []float64{50, 25}, got.Variances, 1e-12)

	// the input is not modified
	h, err = r.Histograms.Histogram("mjj")
	require.NoError(t, err)
	orig, err := Project(h, "signal", "nominal")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 1}, orig.Values, 1e-12)

	_, err = Normalize(result(t, 0, nil), 1, 1)
	assert.ErrorIs(t, err, ErrZeroSumW)
}

func TestStack(t *testing.T) {
	results := map[string]*processor.Result{
		"ttbar": result(t, 1, map[string][]float64{
			"nominal":    {50, 150},
			"pileupUp":   {50, 150, 150},
			"pileupDown": {50},
		}),
		"wjets": result(t, 1, map[string][]float64{
			"nominal": {50, 50},
		}),
	}

	s, err := NewStack(results, StackOptions{Histogram: "mjj", Category: "signal"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, s.Processes["ttbar"].Values)
	assert.Equal(t, []float64{3, 1}, s.Nominal.Values)
	// wjets has no pileup variation and contributes its nominal
	assert.Equal(t, []float64{3, 2}, s.Variations["pileupUp"].Values)
	assert.Equal(t, []float64{3, 0}, s.Variations["pileupDown"].Values)

	s, err = NewStack(results, StackOptions{Histogram: "mjj", Category: "signal", DivideByBinWidth: true})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.03, 0.005}, s.Nominal.Values, 1e-12)

	_, err = NewStack(nil, StackOptions{Histogram: "mjj", Category: "signal"})
	assert.ErrorIs(t, err, ErrNoProcesses)
	_, err = NewStack(results, StackOptions{Histogram: "met", Category: "signal"})
	assert.ErrorIs(t, err, histo.ErrUnknownHistogram)
}

func TestPoissonInterval(t *testing.T) {
	lo, hi := PoissonInterval([]float64{0, 10}, nil, OneSigma)
	assert.InDelta(t, 0, lo[0], 1e-9)
	assert.InDelta(t, 1.8410, hi[0], 1e-3)
	assert.InDelta(t, 6.8906, lo[1], 1e-3)
	assert.InDelta(t, 14.2662, hi[1], 1e-3)

	// weights of 2: 5 effective entries scaled by 2
	lo, hi = PoissonInterval([]float64{10}, []float64{20}, OneSigma)
	loUnit, hiUnit := PoissonInterval([]float64{5}, nil, OneSigma)
	assert.InDelta(t, 2*loUnit[0], lo[0], 1e-9)
	assert.InDelta(t, 2*hiUnit[0], hi[0], 1e-9)
}

func TestBand(t *testing.T) {
	s := &Stack{
		Nominal: Hist{Values: []float64{10, 0}, Variances: []float64{0, 0}},
		Variations: map[string]Hist{
			"jesUp":      {Values: []float64{13, 0}},
			"jesDown":    {Values: []float64{6, 0}},
			"pileupUp":   {Values: []float64{8, 0}},
			"pileupDown": {Values: []float64{14, 0}},
		},
	}
	b := NewBand(s)
	assert.InDelta(t, 13, b.Up[0], 1e-9)
	assert.InDelta(t, 6, b.Down[0], 1e-9)
	assert.InDelta(t, 1.8410, b.Up[1], 1e-3)
	assert.InDelta(t, 0, b.Down[1], 1e-9)

	up, down := b.Ratio()
	assert.InDelta(t, 1.3, up[0], 1e-9)
	assert.InDelta(t, 0.6, down[0], 1e-9)
	assert.Equal(t, 1.0, up[1])
}

func TestIsUp(t *testing.T) {
	assert.True(t, IsUp("JESUp"))
	assert.False(t, IsUp("JESDown"))
}

func TestRatioInterval(t *testing.T) {
	ratio, lo, hi := RatioInterval([]float64{1, 0, 3}, []float64{1, 1, 0}, OneSigma)

	// one over one: Beta(1,2) and Beta(2,1) have closed-form quantiles
	pLo := 1 - math.Sqrt(1-(1-OneSigma)/2)
	pHi := math.Sqrt((1 + OneSigma) / 2)
	assert.Equal(t, 1.0, ratio[0])
	assert.InDelta(t, pLo/(1-pLo), lo[0], 1e-6)
	assert.InDelta(t, pHi/(1-pHi), hi[0], 1e-6)

	// nothing observed: uniform upper quantile, no lower bound
	q := (1 + OneSigma) / 2
	assert.Equal(t, 0.0, ratio[1])
	assert.Equal(t, 0.0, lo[1])
	assert.InDelta(t, q/(1-q), hi[1], 1e-6)

	// empty denominator
	assert.Equal(t, 0.0, ratio[2])
	assert.Equal(t, 0.0, lo[2])
	assert.Equal(t, 0.0, hi[2])
}
