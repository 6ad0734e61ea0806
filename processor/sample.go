package processor

import (
	"github.com/deoache/susy-vbf/corrections"
	"github.com/deoache/susy-vbf/expr"
)

// Sample tells the processor what kind of events a batch holds. It is
// either MonteCarlo or RealData.
type Sample interface {
	isMC() bool
}

// MonteCarlo is simulated data: it carries correction weights and is
// reprocessed under every configured shift.
type MonteCarlo struct {
	Corrections *corrections.Set
}

func (MonteCarlo) isMC() bool { return true }

// RealData only has the nominal view and a unit weight. Lumi may be nil to
// accept every luminosity block.
type RealData struct {
	Lumi       expr.LumiMasker
	Correctors []corrections.Corrector
}

func (RealData) isMC() bool { return false }

// IsMC reports whether s is simulated.
func IsMC(s Sample) bool { return s.isMC() }
