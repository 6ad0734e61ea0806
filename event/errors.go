// Package event holds the immutable columnar representation of a batch of
// collision events: per-event scalar columns and ragged object collections.
package event

import "errors"

var (
	ErrLengthMismatch    = errors.New("length mismatch")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnknownScalar     = errors.New("unknown scalar")
	ErrUnknownCollection = errors.New("unknown collection")
)

// Objects maps an object-type name (jets, muons, ...) to its selected
// collection.
type Objects map[string]*Collection
