package record

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/histo"
	"github.com/deoache/susy-vbf/processor"
	"github.com/deoache/susy-vbf/selection"
)

const histConfig = `
layout: individual
axes:
  met: {type: Regular, bins: 4, start: 0, stop: 100, expression: {func: field, collection: MET, field: pt}}
  njets: {type: IntCategory, values: [0, 1, 2], expression: {func: count, object: jets}}
add_syst_axis: true
add_weight: true
flow: false
`

func testResult(t *testing.T) *processor.Result {
	t.Helper()
	var cfg histo.Config
	require.NoError(t, yaml.Unmarshal([]byte(histConfig), &cfg))
	f, err := histo.Build(cfg, []string{"signal", "control"})
	require.NoError(t, err)
	require.NoError(t, f.Fill("met", "signal", "nominal", []float64{10, 60, 60}, []float64{1, 2, 0.5}))
	require.NoError(t, f.Fill("met", "signal", "pileupUp", []float64{10}, []float64{1.5}))
	require.NoError(t, f.Fill("njets", "control", "nominal", []float64{2}, []float64{3}))

	return &processor.Result{
		Metadata: processor.Metadata{
			RawInitial: 10,
			SumW:       12.5,
			Categories: map[string]processor.CategoryMetadata{
				"signal": {
					Cutflow:       selection.Cutflow{{Cut: "trigger", Raw: 5, Weighted: 6}, {Cut: "met", Raw: 3, Weighted: 3.5}},
					WeightedFinal: 3.5,
					RawFinal:      3,
				},
			},
		},
		Histograms: f,
	}
}

func values(t *testing.T, r *processor.Result, name, cat, variation string) []float64 {
	t.Helper()
	h, err := r.Histograms.Histogram(name)
	require.NoError(t, err)
	v, err := h.Values(cat, variation)
	require.NoError(t, err)
	return v
}

func TestWriteRead(t *testing.T) {
	rec, err := FromResult("VBFHToWWToLNuQQ", "2018", true, testResult(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rec))
	assert.Contains(t, buf.String(), "raw_initial_nevents: 10")
	assert.Contains(t, buf.String(), "weighted_final_nevents: 3.5")

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec.Metadata, got.Metadata)
	assert.Equal(t, []string{"signal", "control"}, got.Categories)
	assert.False(t, got.Config.Flow)

	r, err := got.Result()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 2.5, 0}, values(t, r, "met", "signal", "nominal"))
	assert.Equal(t, []float64{1.5, 0, 0, 0}, values(t, r, "met", "signal", "pileupUp"))
	assert.Equal(t, []string{"nominal", "pileupUp"}, r.Histograms.Variations())
}

func TestRecordKeepsFullPrecision(t *testing.T) {
	const w = 1.0000001234567

	res := testResult(t)
	require.NoError(t, res.Histograms.Fill("met", "control", "nominal", []float64{40}, []float64{w}))
	res.Metadata.SumW = w

	rec, err := FromResult("VBFHToWWToLNuQQ", "2018", true, res)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rec))
	got, err := Read(&buf)
	require.NoError(t, err)
	r, err := got.Result()
	require.NoError(t, err)

	assert.Equal(t, w, r.Metadata.SumW)
	assert.Equal(t, []float64{0, w, 0, 0}, values(t, r, "met", "control", "nominal"))
	h, err := r.Histograms.Histogram("met")
	require.NoError(t, err)
	variances, err := h.Variances("control", "nominal")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, w * w, 0, 0}, variances)
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.yaml", "b.yaml"} {
		rec, err := FromResult("VBFHToWWToLNuQQ", "2018", true, testResult(t))
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, rec))
		paths = append(paths, path)
	}

	merged, err := MergeFiles(paths...)
	require.NoError(t, err)
	assert.Equal(t, int64(20), merged.Metadata.RawInitial)
	assert.InDelta(t, 25.0, merged.Metadata.SumW, 1e-12)
	assert.Equal(t, int64(6), merged.Metadata.Categories["signal"].Cutflow[1].Raw)

	r, err := merged.Result()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 5, 0}, values(t, r, "met", "signal", "nominal"))

	other, err := FromResult("SingleMuon", "2018", false, testResult(t))
	require.NoError(t, err)
	_, err = Merge(merged, other)
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = Merge()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestExportROOT(t *testing.T) {
	rec, err := FromResult("VBFHToWWToLNuQQ", "2018", true, testResult(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.root")
	require.NoError(t, ExportROOT(path, rec))

	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()

	for _, tc := range []struct {
		key   string
		nbins int
		sumw  float64
	}{
		{Key("met", "signal", "nominal"), 4, 3.5},
		{Key("met", "signal", "pileupUp"), 4, 1.5},
		{Key("njets", "control", "nominal"), 3, 3},
	} {
		obj, err := f.Get(tc.key)
		require.NoError(t, err, tc.key)
		h, ok := obj.(*rhist.H1D)
		require.True(t, ok, "%s is %T", tc.key, obj)
		assert.Equal(t, tc.nbins, h.NbinsX(), tc.key)
		assert.InDelta(t, tc.sumw, h.SumW(), 1e-12, tc.key)
	}

	_, err = f.Get(Key("njets", "signal", "nominal"))
	assert.Error(t, err)
}
