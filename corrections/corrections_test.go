package corrections

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/event"
	"github.com/deoache/susy-vbf/weights"
)

func TestTableLookup(t *testing.T) {
	tab := &Table{
		Edges:   []float64{0, 1, 2, 4},
		Nominal: []float64{1.0, 1.1, 1.2},
		Up:      []float64{1.05, 1.15, 1.3},
		Down:    []float64{0.95, 1.05, 1.1},
	}
	require.NoError(t, tab.Validate())

	tests := []struct {
		x    float64
		bin  int
		fail bool
	}{
		{x: 0, bin: 0},
		{x: 0.5, bin: 0},
		{x: 1, bin: 1},
		{x: 3.9, bin: 2},
		{x: 4, fail: true},
		{x: -0.1, fail: true},
		{x: math.NaN(), fail: true},
	}
	for _, tt := range tests {
		bin, err := tab.Bin(tt.x)
		if tt.fail {
			assert.ErrorIs(t, err, ErrOutOfRange, "x=%v", tt.x)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.bin, bin, "x=%v", tt.x)
	}

	nom, up, down, err := tab.Lookup(1.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.1, 1.15, 1.05}, []float64{nom, up, down})

	tab.Clamp = true
	bin, err := tab.Bin(10)
	require.NoError(t, err)
	assert.Equal(t, 2, bin)
	bin, err = tab.Bin(-10)
	require.NoError(t, err)
	assert.Equal(t, 0, bin)
}

func TestTableValidate(t *testing.T) {
	bad := []Table{
		{Edges: []float64{0}},
		{Edges: []float64{1, 0}, Nominal: []float64{1}},
		{Edges: []float64{0, 1}, Nominal: []float64{1, 2}},
		{Edges: []float64{0, 1}, Nominal: []float64{1}, Up: []float64{1}},
	}
	for i := range bad {
		assert.ErrorIs(t, bad[i].Validate(), ErrBadTable)
	}
}

func testBatch(t *testing.T) *event.Batch {
	t.Helper()
	muons, err := event.NewCollection("muons", []int{2, 0, 1}, map[string][]float64{
		"pt":  {30, 40, 50},
		"eta": {-0.5, 1.5, 0.2},
	})
	require.NoError(t, err)
	jets, err := event.NewCollection("Jet", []int{1, 1, 0}, map[string][]float64{
		"pt":  {100, 50},
		"eta": {0.5, -1.5},
		"phi": {0, math.Pi / 2},
	})
	require.NoError(t, err)
	met, err := event.Singleton("MET", 3, map[string][]float64{
		"pt":                   {20, 0, 10},
		"phi":                  {math.Pi, 0, 0},
		"MetUnclustEnUpDeltaX": {1, 2, 3},
		"MetUnclustEnUpDeltaY": {0, 0, 0},
	})
	require.NoError(t, err)

	b, err := event.NewBatch(event.Metadata{Year: "2018"}, 3, map[string][]float64{
		"genWeight":       {2, -1, 0.5},
		"Pileup_nTrueInt": {10, 30, 50},
	}, jets, met, muons)
	require.NoError(t, err)
	return b
}

func TestWeightProviders(t *testing.T) {
	b := testBatch(t)
	objs := event.Objects{}
	muons, err := b.Collection("muons")
	require.NoError(t, err)
	objs["muons"] = muons

	gen := &GenWeight{Label: "genweight", Scalar: "genWeight"}
	f, err := gen.Weight(b, objs, weights.Nominal)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -1, 0.5}, f.Nominal)
	assert.Nil(t, f.Up)

	pu := &EventScaleFactor{Label: "pileup", Scalar: "Pileup_nTrueInt", Table: &Table{
		Edges:   []float64{0, 20, 40, 100},
		Nominal: []float64{0.9, 1.0, 1.2},
		Up:      []float64{1.0, 1.1, 1.3},
		Down:    []float64{0.8, 0.9, 1.1},
	}}
	f, err = pu.Weight(b, objs, weights.Nominal)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 1.0, 1.2}, f.Nominal)
	assert.Equal(t, []float64{1.0, 1.1, 1.3}, f.Up)

	// shifted passes only need the nominal factor
	f, err = pu.Weight(b, objs, "JESUp")
	require.NoError(t, err)
	assert.Nil(t, f.Up)
	assert.Nil(t, f.Down)

	id := &ObjectScaleFactor{Label: "muon_id", Object: "muons", Field: "eta", Abs: true, Table: &Table{
		Edges:   []float64{0, 1, 2.4},
		Nominal: []float64{0.5, 2},
		Up:      []float64{1, 3},
		Down:    []float64{0.25, 1},
	}}
	f, err = id.Weight(b, objs, weights.Nominal)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0.5}, f.Nominal)
	assert.Equal(t, []float64{3, 1, 1}, f.Up)
	assert.Equal(t, []float64{0.25, 1, 0.25}, f.Down)

	_, err = (&ObjectScaleFactor{Label: "tau_id", Object: "taus", Field: "pt", Table: id.Table}).Weight(b, objs, weights.Nominal)
	assert.ErrorIs(t, err, event.ErrUnknownCollection)

	_, err = (&EventScaleFactor{Label: "pileup", Scalar: "Pileup_nTrueInt", Table: &Table{
		Edges: []float64{0, 20}, Nominal: []float64{1},
	}}).Weight(b, objs, weights.Nominal)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestJetScale(t *testing.T) {
	b := testBatch(t)
	jes := &JetScale{Jets: "Jet", MET: "MET", Uncertainty: &Table{
		Edges:   []float64{0, 1, 5},
		Nominal: []float64{0.1, 0.2},
	}}

	subs, err := jes.Shift(b, true)
	require.NoError(t, err)
	pt, err := subs["Jet"].Field("pt")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{110, 60}, pt.Values, 1e-9)

	// event 0: the jet along +x gains 10, the MET along -x grows by 10
	met, err := subs["MET"].Field("pt")
	require.NoError(t, err)
	assert.InDelta(t, 30, met.Values[0], 1e-9)
	assert.InDelta(t, 10, met.Values[1], 1e-9)
	assert.InDelta(t, 10, met.Values[2], 1e-9)

	subs, err = jes.Shift(b, false)
	require.NoError(t, err)
	pt, err = subs["Jet"].Field("pt")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{90, 40}, pt.Values, 1e-9)

	// the input batch is untouched
	raw, err := b.Collection("Jet")
	require.NoError(t, err)
	pt, err = raw.Field("pt")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 50}, pt.Values)
}

func TestUnclusteredEnergy(t *testing.T) {
	b := testBatch(t)
	ues := &UnclusteredEnergy{MET: "MET", DeltaX: "MetUnclustEnUpDeltaX", DeltaY: "MetUnclustEnUpDeltaY"}

	subs, err := ues.Shift(b, true)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	pt, err := subs["MET"].Field("pt")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{19, 2, 13}, pt.Values, 1e-9)

	subs, err = ues.Shift(b, false)
	require.NoError(t, err)
	pt, err = subs["MET"].Field("pt")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{21, 2, 7}, pt.Values, 1e-9)
}

func TestUnclusteredEnergyNeedsOneRecordPerEvent(t *testing.T) {
	ues := &UnclusteredEnergy{MET: "MET", DeltaX: "dx", DeltaY: "dy"}
	for _, counts := range [][]int{{1, 0, 0}, {2, 0, 1}} {
		total := counts[0] + counts[1] + counts[2]
		fields := map[string][]float64{}
		for _, f := range []string{"pt", "phi", "dx", "dy"} {
			fields[f] = make([]float64, total)
		}
		met, err := event.NewCollection("MET", counts, fields)
		require.NoError(t, err)
		b, err := event.NewBatch(event.Metadata{Year: "2018"}, 3, nil, met)
		require.NoError(t, err)

		_, err = ues.Shift(b, true)
		assert.ErrorIs(t, err, ErrBadConfig, "counts %v", counts)
	}
}

func TestFieldScale(t *testing.T) {
	b := testBatch(t)
	c := &FieldScale{Collection: "muons", Field: "pt", By: "eta", Abs: true, Table: &Table{
		Edges: []float64{0, 1, 2.4}, Nominal: []float64{1.1, 0.9},
	}}

	out, err := c.Correct(b)
	require.NoError(t, err)
	muons, err := out.Collection("muons")
	require.NoError(t, err)
	pt, err := muons.Field("pt")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{33, 36, 55}, pt.Values, 1e-9)
}

func TestGoldenJSON(t *testing.T) {
	g, err := ParseGoldenJSON(strings.NewReader(`{"315257": [[1, 88], [91, 92]], "315259": [[1, 172]]}`))
	require.NoError(t, err)

	assert.True(t, g.Contains(315257, 1))
	assert.True(t, g.Contains(315257, 92))
	assert.False(t, g.Contains(315257, 89))
	assert.False(t, g.Contains(1, 1))
	assert.Equal(t, []bool{true, false, true}, g.Mask([]float64{315259, 315259, 315257}, []float64{172, 173, 50}))

	_, err = ParseGoldenJSON(strings.NewReader(`{"abc": [[1, 2]]}`))
	assert.Error(t, err)
	_, err = ParseGoldenJSON(strings.NewReader(`{"1": [[5, 2]]}`))
	assert.Error(t, err)
}

const testConfig = `
weights:
  - {name: genweight, kind: genweight, scalar: genWeight}
  - name: pileup
    scalar: Pileup_nTrueInt
    tables:
      "2018": {edges: [0, 100], nominal: [1], up: [1.1], down: [0.9]}
  - name: muon_id
    kind: object
    object: muons
    field: eta
    abs: true
    tables:
      "*": {edges: [0, 2.4], nominal: [0.98]}
shifts:
  jes:
    tables:
      "*": {edges: [0, 5], nominal: [0.02]}
  ues: {enabled: true}
scales:
  - collection: Tau
    tables:
      "2018": {edges: [0, 2.5], nominal: [1.01]}
`

func TestBuild(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(testConfig), &cfg))
	assert.Equal(t, KindEvent, cfg.Weights[1].Kind)
	assert.Equal(t, "pt", cfg.Scales[0].Field)

	set, err := Build(cfg, "2018")
	require.NoError(t, err)
	require.Len(t, set.Weights, 3)
	assert.Equal(t, "muon_id", set.Weights[2].Name())
	assert.NotNil(t, set.JES)
	assert.NotNil(t, set.UES)
	assert.Nil(t, set.JER)
	assert.Len(t, set.MC, 1)
	assert.Empty(t, set.Data)

	_, err = Build(cfg, "2017")
	assert.ErrorIs(t, err, ErrMissingTable)

	cfg.Weights = append(cfg.Weights, WeightConfig{Name: "x", Kind: "nope"})
	_, err = Build(cfg, "2018")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
