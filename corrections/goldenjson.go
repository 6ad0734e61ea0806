package corrections

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// GoldenJSON is the certified luminosity list of real data: for every run,
// the inclusive ranges of usable luminosity blocks.
type GoldenJSON map[int64][][2]int64

// ParseGoldenJSON reads the {"run": [[first, last], ...]} format.
func ParseGoldenJSON(r io.Reader) (GoldenJSON, error) {
	var raw map[string][][2]int64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("golden json: %w", err)
	}

	out := make(GoldenJSON, len(raw))
	for run, ranges := range raw {
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("golden json: bad run %q: %w", run, err)
		}
		for _, rg := range ranges {
			if rg[0] > rg[1] {
				return nil, fmt.Errorf("golden json: run %d: bad range [%d, %d]", n, rg[0], rg[1])
			}
		}
		out[n] = ranges
	}
	return out, nil
}

func LoadGoldenJSON(path string) (GoldenJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseGoldenJSON(f)
}

// Contains reports whether a luminosity block of a run is certified.
func (g GoldenJSON) Contains(run, lumi int64) bool {
	for _, rg := range g[run] {
		if lumi >= rg[0] && lumi <= rg[1] {
			return true
		}
	}
	return false
}

// Mask evaluates Contains per event.
func (g GoldenJSON) Mask(run, lumi []float64) []bool {
	out := make([]bool, len(run))
	for i := range out {
		out[i] = g.Contains(int64(run[i]), int64(lumi[i]))
	}
	return out
}
