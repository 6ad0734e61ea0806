package event

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jets(t *testing.T) *Collection {
	t.Helper()
	c, err := NewCollection("Jet", []int{2, 0, 3}, map[string][]float64{
		"pt":  {50, 30, 80, 40, 20},
		"eta": {0.5, -1.0, 2.0, 0.1, -3.0},
	})
	require.NoError(t, err)
	return c
}

func TestNewCollection(t *testing.T) {
	c := jets(t)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 5, c.Total())
	assert.Equal(t, []float64{2, 0, 3}, c.Counts())
	assert.Equal(t, []string{"eta", "pt"}, c.Fields())

	_, err := NewCollection("Jet", []int{1}, map[string][]float64{"pt": {1, 2}})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = NewCollection("Jet", []int{-1}, nil)
	assert.Error(t, err)
}

func TestJagged(t *testing.T) {
	pt, err := jets(t).Field("pt")
	require.NoError(t, err)

	assert.Equal(t, []float64{80, 0, 140}, pt.Sum())
	assert.Equal(t, []float64{1500, 1, 64000}, pt.Prod())
	assert.Equal(t, []float64{50, -1, 80}, pt.Max(-1))
	assert.Equal(t, []float64{30, -1, 40}, pt.At(1, -1))
	assert.Equal(t, []float64{80, 40, 20}, pt.Row(2))

	_, err = jets(t).Field("mass")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFilterAndTake(t *testing.T) {
	c := jets(t)

	hard, err := c.Filter([]bool{true, false, true, true, false})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 2}, hard.Counts())
	pt, _ := hard.Field("pt")
	assert.Equal(t, []float64{50, 80, 40}, pt.Values)

	// the input collection is untouched
	pt, _ = c.Field("pt")
	assert.Len(t, pt.Values, 5)

	taken, err := c.Take([]bool{false, true, true})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3}, taken.Counts())
	pt, _ = taken.Field("pt")
	assert.Equal(t, []float64{80, 40, 20}, pt.Values)

	_, err = c.Filter([]bool{true})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestWithField(t *testing.T) {
	c := jets(t)
	scaled, err := c.WithField("pt", []float64{1, 2, 3, 4, 5})
	require.NoError(t, err)

	pt, _ := scaled.Field("pt")
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, pt.Values)
	pt, _ = c.Field("pt")
	assert.Equal(t, 50.0, pt.Values[0])
}

func TestBatchWith(t *testing.T) {
	c := jets(t)
	b, err := NewBatch(Metadata{Dataset: "ttbar"}, 3, map[string][]float64{"genWeight": {1, 1, 1}}, c)
	require.NoError(t, err)

	shifted, err := c.WithField("pt", []float64{55, 33, 88, 44, 22})
	require.NoError(t, err)

	view, err := b.With(map[string]*Collection{"Jet": shifted})
	require.NoError(t, err)

	got, _ := view.Collection("Jet")
	assert.Same(t, shifted, got)
	orig, _ := b.Collection("Jet")
	assert.Same(t, c, orig)

	_, err = b.Scalar("missing")
	assert.ErrorIs(t, err, ErrUnknownScalar)
	_, err = b.Collection("Tau")
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = NewBatch(Metadata{}, 2, nil, c)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDeltaR(t *testing.T) {
	assert.InDelta(t, 0.0, DeltaPhi(math.Pi, -math.Pi), 1e-12)
	assert.InDelta(t, math.Hypot(3, 2*math.Pi-6), DeltaR(0, 3, 3, -3), 1e-9)
}
