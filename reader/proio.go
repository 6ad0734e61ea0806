package reader

import (
	"context"
	"math"
	"sort"

	"github.com/proio-org/go-proio"
	"github.com/proio-org/go-proio-pb/model/eic"

	"github.com/deoache/susy-vbf/event"
)

// DefaultTags maps the proio tags read when Config.Tags is empty.
var DefaultTags = map[string]string{
	"GenStable":     "GenPart",
	"Reconstructed": "Track",
}

type proioSource struct {
	file    string
	tags    map[string]string
	meta    event.Metadata
	entries int64
}

func openProio(file string, cfg Config, meta event.Metadata) (*proioSource, error) {
	reader, err := proio.Open(file)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var n int64
	for range reader.ScanEvents() {
		n++
	}

	tags := cfg.Tags
	if len(tags) == 0 {
		tags = DefaultTags
	}
	return &proioSource{file: file, tags: tags, meta: meta, entries: n}, nil
}

func (s *proioSource) Entries() int64 { return s.entries }

// objects accumulates one collection over the events of a batch.
type objects struct {
	counts []int
	fields map[string][]float64
}

func (o *objects) add(values map[string]float64) {
	for k, v := range values {
		o.fields[k] = append(o.fields[k], v)
	}
	o.counts[len(o.counts)-1]++
}

func particleFields(part *eic.Particle) map[string]float64 {
	p := part.GetP()
	px, py, pz := float64(p.GetX()), float64(p.GetY()), float64(p.GetZ())
	pt := math.Hypot(px, py)
	return map[string]float64{
		"pt":     pt,
		"eta":    math.Asinh(pz / pt),
		"phi":    math.Atan2(py, px),
		"px":     px,
		"py":     py,
		"pz":     pz,
		"mass":   float64(part.GetMass()),
		"charge": float64(part.GetCharge()),
		"pdgId":  float64(part.GetPdg()),
	}
}

func trackFields(track *eic.Track) map[string]float64 {
	seg := track.GetSegment()[0]
	poq := seg.GetPoq()
	px, py, pz := poq.GetX(), poq.GetY(), poq.GetZ()
	pt := math.Hypot(px, py)
	return map[string]float64{
		"pt":     pt,
		"eta":    math.Asinh(pz / pt),
		"phi":    math.Atan2(py, px),
		"px":     px,
		"py":     py,
		"pz":     pz,
		"charge": float64(seg.GetChargesign()),
	}
}

func (s *proioSource) ReadBatch(ctx context.Context, first, n int64) (*event.Batch, error) {
	if err := checkRange(s.entries, first, n); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := proio.Open(s.file)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	collections := make(map[string]*objects, len(s.tags))
	for _, name := range s.tags {
		collections[name] = &objects{fields: make(map[string][]float64)}
	}
	index := make([]float64, 0, n)

	var entry int64
	// the scan is drained to the end so its goroutine exits
	for evt := range reader.ScanEvents() {
		i := entry
		entry++
		if i < first || i >= first+n || ctx.Err() != nil {
			continue
		}

		index = append(index, float64(i))
		for tag, name := range s.tags {
			o := collections[name]
			o.counts = append(o.counts, 0)
			for _, id := range evt.TaggedEntries(tag) {
				switch e := evt.GetEntry(id).(type) {
				case *eic.Particle:
					o.add(particleFields(e))
				case *eic.Track:
					if len(e.GetSegment()) > 0 {
						o.add(trackFields(e))
					}
				}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]*event.Collection, 0, len(names))
	for _, name := range names {
		o := collections[name]
		c, err := event.NewCollection(name, o.counts, o.fields)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}

	meta := s.meta
	meta.First = first
	return event.NewBatch(meta, len(index), map[string][]float64{"entry": index}, cols...)
}
