package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"github.com/deoache/susy-vbf/event"
	"github.com/deoache/susy-vbf/processor"
	"github.com/deoache/susy-vbf/reader"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const procConfig = `
year: "2018"
object_selection:
  - name: jets
    collection: Jet
    cuts: [{field: pt, op: ">", value: 20}]
selections:
  has_jets: {func: count, object: jets, op: ">=", value: 1}
categories:
  inclusive: [has_jets]
histograms:
  layout: individual
  add_syst_axis: true
  add_weight: true
  flow: true
  axes:
    njets:
      type: IntCategory
      values: [0, 1, 2]
      expression: {func: count, object: jets}
`

var errRead = errors.New("read failed")

// fakeSource has entries events; event i has i%3 jets. The first failures
// reads fail.
type fakeSource struct {
	entries int64

	mu       sync.Mutex
	failures int
}

func (s *fakeSource) Entries() int64 { return s.entries }

func (s *fakeSource) ReadBatch(_ context.Context, first, n int64) (*event.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return nil, errRead
	}

	var counts []int
	pt := []float64{}
	for i := first; i < first+n; i++ {
		counts = append(counts, int(i%3))
		for k := 0; k < int(i%3); k++ {
			pt = append(pt, 30)
		}
	}
	jets, err := event.NewCollection("Jet", counts, map[string][]float64{"pt": pt})
	if err != nil {
		return nil, err
	}
	return event.NewBatch(event.Metadata{First: first}, int(n), nil, jets)
}

func newProcessor(t *testing.T) *processor.Processor {
	t.Helper()
	var cfg processor.Config
	require.NoError(t, yaml.Unmarshal([]byte(procConfig), &cfg))
	logger, _ := test.NewNullLogger()
	p, err := processor.New(cfg, nil, logger)
	require.NoError(t, err)
	return p
}

func newRunner(t *testing.T, cfg Config, sources map[string]*fakeSource) (*Runner, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	open := func(file string, _ event.Metadata) (reader.Source, error) {
		s, ok := sources[file]
		if !ok {
			return nil, errors.New("no such file")
		}
		return s, nil
	}
	return NewWithOpener(cfg, 7, newProcessor(t), open, logger), hook
}

func njets(t *testing.T, r *processor.Result) []float64 {
	t.Helper()
	h, err := r.Histograms.Histogram("njets")
	require.NoError(t, err)
	v, err := h.Values("inclusive", "nominal")
	require.NoError(t, err)
	return v
}

func TestRun(t *testing.T) {
	for _, workers := range []int{1, 3} {
		sources := map[string]*fakeSource{
			"a.root": {entries: 30},
			"b.root": {entries: 0},
			"c.root": {entries: 12},
		}
		r, _ := newRunner(t, Config{Workers: workers}, sources)

		res, err := r.Run(context.Background(), Job{
			Dataset: "test",
			Year:    "2018",
			Files:   []string{"a.root", "b.root", "c.root"},
			Sample:  processor.RealData{},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(42), res.Metadata.RawInitial)
		// 10+4 events with one jet, 10+4 with two
		assert.InDeltaSlice(t, []float64{0, 14, 14}, njets(t, res), 1e-9)
		assert.Equal(t, int64(28), res.Metadata.Categories["inclusive"].RawFinal)
	}
}

func TestRunRetries(t *testing.T) {
	sources := map[string]*fakeSource{"a.root": {entries: 10, failures: 2}}
	r, hook := newRunner(t, Config{Workers: 1, Retries: 2}, sources)

	res, err := r.Run(context.Background(), Job{Dataset: "test", Files: []string{"a.root"}, Sample: processor.RealData{}})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Metadata.RawInitial)

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestRunFails(t *testing.T) {
	sources := map[string]*fakeSource{
		"a.root": {entries: 10},
		"b.root": {entries: 10, failures: 3},
	}
	r, _ := newRunner(t, Config{Workers: 2, Retries: 2}, sources)

	res, err := r.Run(context.Background(), Job{Dataset: "test", Files: []string{"a.root", "b.root"}, Sample: processor.RealData{}})
	assert.ErrorIs(t, err, errRead)
	assert.Nil(t, res)

	_, err = r.Run(context.Background(), Job{Dataset: "test", Files: []string{"missing.root"}, Sample: processor.RealData{}})
	assert.Error(t, err)

	_, err = r.Run(context.Background(), Job{Dataset: "test"})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestRunCancelled(t *testing.T) {
	sources := map[string]*fakeSource{"a.root": {entries: 100}}
	r, _ := newRunner(t, Config{Workers: 1, Retries: 5}, sources)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, Job{Dataset: "test", Files: []string{"a.root"}, Sample: processor.RealData{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&Config{Workers: 1}).Validate())
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Workers: 1, Retries: -1}).Validate())
}
