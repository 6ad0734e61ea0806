// Package histo builds and fills families of histograms split by event
// category and systematic variation. Each (category, variation) cell of a
// histogram is an hbook.H1D; multi-axis histograms are stored over the
// row-major linear index of their bins.
//
// A Family is not safe for concurrent use. Batches fill their own family
// and families are combined afterwards with Merge.
package histo

import "errors"

var (
	ErrAxisMismatch     = errors.New("axis mismatch")
	ErrBadAxis          = errors.New("bad axis")
	ErrBadCell          = errors.New("corrupt histogram cell")
	ErrBadLayout        = errors.New("bad layout")
	ErrUnknownHistogram = errors.New("unknown histogram")
	ErrNoWeightStorage  = errors.New("histogram has no weight storage")
)
