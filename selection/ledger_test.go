package selection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAll(t *testing.T) {
	l := NewLedger(4)
	require.NoError(t, l.Add("two_jets", []bool{true, true, false, true}))
	require.NoError(t, l.Add("one_lepton", []bool{true, false, true, true}))

	all, err := l.All("two_jets", "one_lepton")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, true}, all)

	reversed, err := l.All("one_lepton", "two_jets")
	require.NoError(t, err)
	assert.Equal(t, all, reversed)

	none, err := l.All()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true}, none)

	_, err = l.All("two_jets", "met")
	assert.ErrorIs(t, err, ErrUnknownMask)

	assert.ErrorIs(t, l.Add("two_jets", []bool{true, true, true, true}), ErrDuplicateName)
	assert.ErrorIs(t, l.Add("short", []bool{true}), ErrLengthMismatch)
	assert.Equal(t, []string{"two_jets", "one_lepton"}, l.Names())
}

func TestCutflowOrder(t *testing.T) {
	l := NewLedger(4)
	require.NoError(t, l.Add("a", []bool{true, true, false, true}))
	require.NoError(t, l.Add("b", []bool{true, false, true, false}))
	w := []float64{1, 2, 3, 4}

	flow, final, err := l.Cutflow(w, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, Cutflow{
		{Cut: "a", Raw: 3, Weighted: 7},
		{Cut: "b", Raw: 1, Weighted: 1},
	}, flow)
	assert.Equal(t, []bool{true, false, false, false}, final)

	flow, _, err = l.Cutflow(w, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, Cutflow{
		{Cut: "b", Raw: 2, Weighted: 4},
		{Cut: "a", Raw: 1, Weighted: 1},
	}, flow)

	_, _, err = l.Cutflow(w, "a", "c")
	assert.ErrorIs(t, err, ErrUnknownMask)
	_, _, err = l.Cutflow([]float64{1}, "a")
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestCutflowMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 500

	l := NewLedger(n)
	names := []string{"c0", "c1", "c2", "c3", "c4"}
	for _, name := range names {
		mask := make([]bool, n)
		for i := range mask {
			mask[i] = rng.Float64() < 0.7
		}
		require.NoError(t, l.Add(name, mask))
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = rng.Float64()
	}

	flow, final, err := l.Cutflow(w, names...)
	require.NoError(t, err)
	require.Len(t, flow, len(names))
	for k := 1; k < len(flow); k++ {
		assert.LessOrEqual(t, flow[k].Weighted, flow[k-1].Weighted)
		assert.LessOrEqual(t, flow[k].Raw, flow[k-1].Raw)
	}

	all, err := l.All(names...)
	require.NoError(t, err)
	assert.Equal(t, all, final)
	assert.Equal(t, Count(all), flow[len(flow)-1].Raw)
	assert.InDelta(t, WeightedSum(all, w), flow[len(flow)-1].Weighted, 1e-9)
}

func TestCutflowMerge(t *testing.T) {
	a := Cutflow{{Cut: "x", Raw: 3, Weighted: 2.5}, {Cut: "y", Raw: 1, Weighted: 1}}
	b := Cutflow{{Cut: "x", Raw: 1, Weighted: 0.5}, {Cut: "y", Raw: 0, Weighted: 0}}

	ab, err := a.Merge(b)
	require.NoError(t, err)
	ba, err := b.Merge(a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Equal(t, Cutflow{{Cut: "x", Raw: 4, Weighted: 3}, {Cut: "y", Raw: 1, Weighted: 1}}, ab)

	empty, err := Cutflow(nil).Merge(a)
	require.NoError(t, err)
	assert.Equal(t, a, empty)

	_, err = a.Merge(Cutflow{{Cut: "y"}, {Cut: "x"}})
	assert.Error(t, err)
}
