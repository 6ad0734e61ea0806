// Package corrections holds the calibration providers the processor treats
// as black boxes: scale-factor weights, energy-scale shifters and field
// correctors, all driven by binned lookup tables from configuration.
package corrections

import "errors"

var (
	ErrBadTable     = errors.New("bad correction table")
	ErrOutOfRange   = errors.New("value outside correction table")
	ErrMissingTable = errors.New("no correction table")
	ErrUnknownKind  = errors.New("unknown correction kind")
	ErrBadConfig    = errors.New("bad correction config")
)
