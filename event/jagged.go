package event

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Jagged is a single field of a Collection viewed per event.
type Jagged struct {
	Offsets []int
	Values  []float64
}

// Len returns the number of events.
func (j Jagged) Len() int { return len(j.Offsets) - 1 }

// Row returns the values of event e. The slice aliases the column.
func (j Jagged) Row(e int) []float64 {
	return j.Values[j.Offsets[e]:j.Offsets[e+1]]
}

// Sum returns the per-event sum of the values.
func (j Jagged) Sum() []float64 {
	out := make([]float64, j.Len())
	for e := range out {
		out[e] = floats.Sum(j.Row(e))
	}
	return out
}

// Prod returns the per-event product of the values, 1 for empty events.
func (j Jagged) Prod() []float64 {
	out := make([]float64, j.Len())
	for e := range out {
		out[e] = floats.Prod(j.Row(e))
	}
	return out
}

// Max returns the per-event maximum, fill for empty events.
func (j Jagged) Max(fill float64) []float64 {
	out := make([]float64, j.Len())
	for e := range out {
		row := j.Row(e)
		if len(row) == 0 {
			out[e] = fill
			continue
		}
		out[e] = floats.Max(row)
	}
	return out
}

// At returns the k-th value of every event, fill where the event has fewer
// than k+1 objects.
func (j Jagged) At(k int, fill float64) []float64 {
	out := make([]float64, j.Len())
	for e := range out {
		row := j.Row(e)
		if k < len(row) {
			out[e] = row[k]
		} else {
			out[e] = fill
		}
	}
	return out
}

// DeltaPhi returns a-b wrapped into [-pi, pi).
func DeltaPhi(a, b float64) float64 {
	d := math.Mod(a-b+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d - math.Pi
}

// DeltaR returns the distance between two directions in (eta, phi).
func DeltaR(eta1, phi1, eta2, phi2 float64) float64 {
	return math.Hypot(eta1-eta2, DeltaPhi(phi1, phi2))
}
